package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"openrag/internal/config"
	"openrag/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueIngest(jobID, filePath string) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewAsynqClient 创建基于 Redis 的任务队列客户端
func NewAsynqClient(cfg config.RedisConfig) Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &asynqClient{client: client}
}

func (c *asynqClient) EnqueueIngest(jobID, filePath string) error {
	payload, err := json.Marshal(tasks.IngestFilePayload{JobID: jobID, FilePath: filePath})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeIngestFile, payload)

	// 默认重试 3 次，超时 10 分钟
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}
