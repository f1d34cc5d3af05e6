package rag

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobTracker 进程内摄取任务注册表。
// 每个任务只有一个写者(处理它的 Ingestor)，读者任意多；
// 所有更新在锁内整体替换 Job 值，读侧拿到的永远是完整快照。
// 任务状态仅存活于进程生命周期内，不落盘。
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewJobTracker 创建任务注册表
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]Job),
	}
}

// Create 注册一个新任务并返回其快照，初始状态 processing/0
func (t *JobTracker) Create(fileName string) Job {
	job := Job{
		ID:        newJobID(),
		FileName:  fileName,
		Status:    StatusProcessing,
		Progress:  0,
		CreatedAt: time.Now(),
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()

	return job
}

// Get 按 id 查询任务快照，未知 id 返回 (零值, false)
func (t *JobTracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	return job, ok
}

// SetProgress 推进任务进度。
// 进度单调不减；任务已进入终态时调用被忽略。
func (t *JobTracker) SetProgress(id string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	if progress > job.Progress {
		job.Progress = progress
		t.jobs[id] = job
	}
}

// Complete 将任务置为终态 completed，进度拉满
func (t *JobTracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	t.jobs[id] = job
}

// Fail 将任务置为终态 error 并记录失败原因
func (t *JobTracker) Fail(id string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	job.Status = StatusError
	job.Error = errMsg
	t.jobs[id] = job
}

// LatestByFile 返回引用该文件的最近一次注册的任务。
// 同一文件名可能对应多个历史任务(重复上传)，状态展示只关心最新一个。
func (t *JobTracker) LatestByFile(fileName string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var latest Job
	found := false
	for _, job := range t.jobs {
		if job.FileName != fileName {
			continue
		}
		if !found || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
			found = true
		}
	}
	return latest, found
}

// RemoveByFile 删除引用该文件的全部任务记录，返回删除数量
func (t *JobTracker) RemoveByFile(fileName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, job := range t.jobs {
		if job.FileName == fileName {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// newJobID 生成 12 位十六进制的不透明任务 id
func newJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
