package tasks

// Task Types
const (
	TypeIngestFile = "ingest:file"
)

// IngestFilePayload 文档索引任务载荷
type IngestFilePayload struct {
	JobID    string `json:"job_id"`
	FilePath string `json:"file_path"`
}
