package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"openrag/internal/logger"
	"openrag/internal/metrics"
	"openrag/internal/rag/extractors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ingestor 摄取编排器：提取 -> 分块 -> 向量化 -> 写入向量存储，
// 每个阶段推进对应任务的进度检查点。
type Ingestor struct {
	registry *extractors.Registry
	chunker  *Chunker
	embedder EmbeddingProvider
	store    VectorStore
	tracker  *JobTracker
}

// NewIngestor 创建摄取编排器
func NewIngestor(
	registry *extractors.Registry,
	chunker *Chunker,
	embedder EmbeddingProvider,
	store VectorStore,
	tracker *JobTracker,
) *Ingestor {
	return &Ingestor{
		registry: registry,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		tracker:  tracker,
	}
}

// Run 执行完整摄取流水线（阻塞），应在后台 worker 中调用。
// 任何阶段失败都会折叠为任务的 error 终态，绝不向调用方抛出；
// 已提交的向量写入不回滚（at-least-once 语义）。
func (ing *Ingestor) Run(ctx context.Context, jobID, path string) {
	job, ok := ing.tracker.Get(jobID)
	if !ok {
		logger.Warn("摄取任务不存在，忽略", zap.String("job_id", jobID))
		return
	}

	start := time.Now()
	log := logger.Get().With(
		zap.String("job_id", jobID),
		zap.String("file", job.FileName),
	)

	defer func() {
		if r := recover(); r != nil {
			ing.fail(jobID, fmt.Sprintf("ingestion panic: %v", r))
			log.Error("摄取流水线 panic", zap.Any("panic", r))
		}
	}()

	if err := ing.run(ctx, jobID, path, log); err != nil {
		ing.fail(jobID, err.Error())
		log.Error("摄取失败", zap.Error(err))
		return
	}

	ing.tracker.Complete(jobID)
	metrics.IngestJobsTotal.WithLabelValues(StatusCompleted).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	log.Info("摄取完成", zap.Duration("elapsed", time.Since(start)))
}

func (ing *Ingestor) run(ctx context.Context, jobID, path string, log *zap.Logger) error {
	log.Info("摄取开始")
	ing.tracker.SetProgress(jobID, 10)

	// 1. 按扩展名分发给对应提取器
	segments, err := ing.registry.Load(path)
	if err != nil {
		return fmt.Errorf("提取文档失败: %w", err)
	}

	// 所有 Segment 补全 file_name 元数据
	fileName := filepath.Base(path)
	for i := range segments {
		if segments[i].Metadata == nil {
			segments[i].Metadata = make(map[string]string)
		}
		if _, ok := segments[i].Metadata[extractors.MetaFileName]; !ok {
			segments[i].Metadata[extractors.MetaFileName] = fileName
		}
	}

	ing.tracker.SetProgress(jobID, 30)
	log.Info("提取完成", zap.Int("segments", len(segments)))

	// 2. 分块
	chunks := ing.chunker.ChunkSegments(segments)
	ing.tracker.SetProgress(jobID, 50)

	// 3. 批量向量化
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("向量化失败: %w", err)
	}

	// 4. 写入向量存储
	records := make([]*Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = &Record{
			ID:        uuid.New().String(),
			Embedding: embeddings[i],
			Text:      chunk.Text,
			Metadata:  chunk.Metadata,
		}
	}

	if err := ing.store.Add(ctx, records); err != nil {
		return fmt.Errorf("存储向量失败: %w", err)
	}

	ing.tracker.SetProgress(jobID, 90)
	metrics.ChunksIndexedTotal.Add(float64(len(records)))
	log.Info("向量写入完成", zap.Int("chunks", len(records)))

	return nil
}

func (ing *Ingestor) fail(jobID, msg string) {
	ing.tracker.Fail(jobID, msg)
	metrics.IngestJobsTotal.WithLabelValues(StatusError).Inc()
}
