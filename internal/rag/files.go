package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"openrag/internal/logger"

	"go.uber.org/zap"
)

// StatusReady 未被任何任务引用的文件的展示状态。
// 进程重启会丢失任务历史，此时磁盘上的文件视为早已索引完成。
const StatusReady = "ready"

// FileRegistry 对账上传目录与任务状态，提供文件列表与删除能力
type FileRegistry struct {
	uploadDir string
	store     VectorStore
	tracker   *JobTracker
}

// NewFileRegistry 创建文件注册表
func NewFileRegistry(uploadDir string, store VectorStore, tracker *JobTracker) *FileRegistry {
	return &FileRegistry{
		uploadDir: uploadDir,
		store:     store,
		tracker:   tracker,
	}
}

// UploadDir 返回上传目录路径
func (r *FileRegistry) UploadDir() string {
	return r.uploadDir
}

// ListFiles 列出上传目录中全部常规非隐藏文件（按文件名排序），
// 附带人类可读大小与状态。状态取该文件最近一次任务的状态，
// 没有任务引用时为 ready。
func (r *FileRegistry) ListFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(r.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("读取上传目录失败: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		status := StatusReady
		if job, ok := r.tracker.LatestByFile(entry.Name()); ok {
			status = job.Status
		}

		files = append(files, FileInfo{
			Name:   entry.Name(),
			Size:   humanSize(info.Size()),
			Status: status,
		})
	}

	return files, nil
}

// DeleteFile 删除上传文件及其全部派生状态。
// 返回 false 表示文件不存在。删除顺序：先尝试清除向量，再删磁盘文件，
// 最后清理任务记录；向量删除失败仅告警，不阻断后续步骤。
func (r *FileRegistry) DeleteFile(ctx context.Context, fileName string) (bool, error) {
	path := filepath.Join(r.uploadDir, fileName)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false, nil
	}

	// 向量删除必须先于磁盘删除尝试，避免重试时留下无主向量
	if err := r.store.DeleteByFileName(ctx, fileName); err != nil {
		logger.Warn("删除文件向量失败(集合可能为空)",
			zap.String("file", fileName),
			zap.Error(err),
		)
	}

	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("删除文件失败: %w", err)
	}

	removed := r.tracker.RemoveByFile(fileName)

	logger.Info("文件及其向量已删除",
		zap.String("file", fileName),
		zap.Int("jobs_removed", removed),
	)
	return true, nil
}

// humanSize 将字节数格式化为人类可读形式。
// 基数 1024，保留一位小数，数值 >= 1024 时逐级升位，封顶 TB。
func humanSize(nbytes int64) string {
	value := float64(nbytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}
