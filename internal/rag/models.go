package rag

import "time"

// 任务状态机: processing -> completed | error，两者均为终态
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Chunk 待向量化的定长文本块，完整继承所属 Segment 的元数据
type Chunk struct {
	Text       string
	ChunkIndex int
	TokenCount int
	Metadata   map[string]string
}

// Job 一次文件摄取任务的状态快照。
// 按值传递与存储，更新时整体替换，读者不会观察到部分写入。
type Job struct {
	ID        string    `json:"job_id"`
	FileName  string    `json:"filename"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileInfo 上传目录中一个文件的展示信息
type FileInfo struct {
	Name   string `json:"name"`
	Size   string `json:"size"`
	Status string `json:"status"`
}

// SourceRef 回答引用，按 (file_name, page, sheet) 去重后的出处
type SourceRef struct {
	FileName    string `json:"file_name"`
	Page        string `json:"page"`
	Sheet       string `json:"sheet"`
	TextPreview string `json:"text_preview"`
}

// QueryResult 一次问答的结构化结果
type QueryResult struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}
