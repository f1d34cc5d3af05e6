package documents

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	response "openrag/api/handlers/common"
	"openrag/internal/infra/queue"
	"openrag/internal/logger"
	"openrag/internal/rag"
	"openrag/internal/rag/extractors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上传落盘的流式拷贝缓冲大小
const copyBufferSize = 1 << 20

// Handler 文档管理接口：上传、列表、删除与任务状态查询
type Handler struct {
	files    *rag.FileRegistry
	tracker  *rag.JobTracker
	registry *extractors.Registry
	queue    queue.Client
}

// NewHandler 构造函数
func NewHandler(files *rag.FileRegistry, tracker *rag.JobTracker, registry *extractors.Registry, q queue.Client) *Handler {
	return &Handler{
		files:    files,
		tracker:  tracker,
		registry: registry,
		queue:    q,
	}
}

// Upload 上传文档并注册后台索引任务
// @Summary 上传文档
// @Description 校验扩展名后落盘，注册索引任务并立即返回任务ID
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文档文件"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/documents [post]
func (h *Handler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "missing file field: " + err.Error()})
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(fileName))
	if fileName == "." || fileName == string(filepath.Separator) || fileName == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "invalid file name"})
		return
	}
	if !h.registry.Supported(fileName) {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Success: false,
			Message: "unsupported file type " + ext + "; allowed types: " + strings.Join(h.registry.Extensions(), ", "),
		})
		return
	}

	destPath := filepath.Join(h.files.UploadDir(), fileName)
	if err := saveStreamed(file, destPath); err != nil {
		logger.Error("保存上传文件失败", zap.String("file_name", fileName), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "failed to save file: " + err.Error()})
		return
	}

	job := h.tracker.Create(fileName)
	if err := h.queue.EnqueueIngest(job.ID, destPath); err != nil {
		h.tracker.Fail(job.ID, "failed to enqueue ingestion: "+err.Error())
		job, _ = h.tracker.Get(job.ID)
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "failed to enqueue ingestion: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Data: gin.H{
		"job_id": job.ID,
		"job":    job,
	}})
}

// List 列出上传目录中的文档
// @Summary 文档列表
// @Description 返回文件名、人类可读大小与最近任务状态
// @Tags Documents
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]string
// @Router /api/documents [get]
func (h *Handler) List(c *gin.Context) {
	files, err := h.files.ListFiles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{"files": files}})
}

// Delete 删除文档及其索引数据
// @Summary 删除文档
// @Description 依次删除向量、磁盘文件与任务记录
// @Tags Documents
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/documents/{filename} [delete]
func (h *Handler) Delete(c *gin.Context) {
	fileName := filepath.Base(c.Param("filename"))
	if fileName == "." || fileName == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "invalid file name"})
		return
	}

	deleted, err := h.files.DeleteFile(c.Request.Context(), fileName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "file not found"})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "file deleted"})
}

// JobStatus 查询索引任务状态
// @Summary 任务状态
// @Description 按任务ID返回状态、进度与错误信息
// @Tags Documents
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/jobs/{id} [get]
func (h *Handler) JobStatus(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.tracker.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "job not found"})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: job})
}

// saveStreamed 以固定大小缓冲区流式落盘，避免整文件驻留内存
func saveStreamed(src io.Reader, destPath string) error {
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		dst.Close()
		os.Remove(destPath)
		return err
	}
	return dst.Close()
}
