package queue

import (
	"fmt"

	"openrag/internal/logger"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// IngestRunner 执行一次文档索引任务
type IngestRunner func(jobID, filePath string)

// localClient 进程内任务队列，Redis 不可用时的降级实现。
// 任务提交到 ants 协程池立即执行，不持久化、不重试。
type localClient struct {
	pool   *ants.Pool
	runner IngestRunner
}

// NewLocalClient 创建进程内任务队列客户端
func NewLocalClient(runner IngestRunner, concurrency int) (Client, error) {
	if runner == nil {
		return nil, fmt.Errorf("ingest runner 不能为空")
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	pool, err := ants.NewPool(concurrency, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("创建协程池失败: %w", err)
	}

	return &localClient{pool: pool, runner: runner}, nil
}

func (c *localClient) EnqueueIngest(jobID, filePath string) error {
	err := c.pool.Submit(func() {
		c.runner(jobID, filePath)
	})
	if err != nil {
		logger.Error("提交索引任务失败",
			zap.String("job_id", jobID),
			zap.Error(err))
		return fmt.Errorf("submit task failed: %w", err)
	}
	return nil
}

func (c *localClient) Close() error {
	c.pool.Release()
	return nil
}
