package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"openrag/internal/rag"
	"openrag/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type IngestHandler struct {
	ingestor *rag.Ingestor
	logger   *zap.Logger
}

func NewIngestHandler(ingestor *rag.Ingestor, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		ingestor: ingestor,
		logger:   logger,
	}
}

func (h *IngestHandler) HandleIngestFile(ctx context.Context, t *asynq.Task) error {
	var p tasks.IngestFilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	h.logger.Info("开始处理索引任务",
		zap.String("job_id", p.JobID),
		zap.String("file_path", p.FilePath))

	// 失败状态由任务追踪器记录，不向队列回传错误触发重试
	h.ingestor.Run(ctx, p.JobID, p.FilePath)

	h.logger.Info("索引任务处理完成", zap.String("job_id", p.JobID))
	return nil
}
