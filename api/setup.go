package api

import (
	"context"
	"fmt"
	"os"
	"strings"

	chatHandlers "openrag/api/handlers/chat"
	documentHandlers "openrag/api/handlers/documents"
	"openrag/internal/ai"
	"openrag/internal/config"
	"openrag/internal/infra/queue"
	"openrag/internal/logger"
	"openrag/internal/rag"
	"openrag/internal/rag/extractors"
	"openrag/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AppContainer 聚合应用生命周期内需要统一关闭的组件
type AppContainer struct {
	Store  rag.VectorStore
	Queue  queue.Client
	Worker *worker.Server // 本地队列模式下为 nil
	Redis  *redis.Client  // Redis 不可用时为 nil
}

// Close 依次释放队列与存储资源
func (c *AppContainer) Close() {
	if c.Worker != nil {
		c.Worker.Shutdown()
	}
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			logger.Warn("关闭任务队列失败", zap.Error(err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("关闭向量存储失败", zap.Error(err))
		}
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
}

// SetupRouter 构建 Gin 路由与后台组件
func SetupRouter(cfg *config.Config) (*gin.Engine, *AppContainer, error) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(), Metrics(), CORS())

	if err := os.MkdirAll(cfg.RAG.UploadDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("创建上传目录失败: %w", err)
	}

	store, err := initVectorStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化向量存储失败: %w", err)
	}

	// Redis 可用时作为向量缓存 L2 与 asynq 队列后端，不可用时各自降级
	redisClient := probeRedis(cfg.Redis)

	var embedder rag.EmbeddingProvider = rag.NewOpenAIEmbeddingProvider(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.EmbedModel)
	embedder = rag.NewCachedEmbeddingProvider(embedder, rag.NewEmbeddingCache(redisClient, 0))
	synthesizer := ai.NewOpenAISynthesizer(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.LLMModel, cfg.AI.MaxTokens)

	registry := extractors.NewRegistry()
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	tracker := rag.NewJobTracker()
	ingestor := rag.NewIngestor(registry, chunker, embedder, store, tracker)

	fileRegistry := rag.NewFileRegistry(cfg.RAG.UploadDir, store, tracker)
	queryService := rag.NewQueryService(store, embedder, synthesizer, cfg.RAG.TopK)

	queueClient, workerServer, err := initQueue(cfg, ingestor, redisClient != nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	handlers := &Handlers{
		Documents: documentHandlers.NewHandler(fileRegistry, tracker, registry, queueClient),
		Chat:      chatHandlers.NewHandler(queryService),
	}
	RegisterRoutes(router, handlers)

	container := &AppContainer{
		Store:  store,
		Queue:  queueClient,
		Worker: workerServer,
		Redis:  redisClient,
	}
	return router, container, nil
}

// probeRedis 探测 Redis 连通性，可用时返回客户端，否则返回 nil
func probeRedis(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis 不可用，向量缓存退回本地内存", zap.Error(err))
		client.Close()
		return nil
	}
	return client
}

// initQueue 初始化任务队列。asynq 模式要求 Redis 可用，
// 否则退回进程内协程池，保证单机无依赖也能运行。
func initQueue(cfg *config.Config, ingestor *rag.Ingestor, redisAvailable bool) (queue.Client, *worker.Server, error) {
	queueType := strings.ToLower(strings.TrimSpace(cfg.Queue.Type))

	if queueType == "asynq" {
		if redisAvailable {
			workerServer := worker.NewServer(cfg.Redis, cfg.Queue.Concurrency, ingestor, logger.Get())
			if err := workerServer.Start(); err != nil {
				return nil, nil, fmt.Errorf("启动 Worker 服务器失败: %w", err)
			}
			return queue.NewAsynqClient(cfg.Redis), workerServer, nil
		}
		logger.Warn("Redis 不可用，摄取队列退回进程内协程池")
	}

	localClient, err := queue.NewLocalClient(func(jobID, filePath string) {
		ingestor.Run(context.Background(), jobID, filePath)
	}, cfg.Queue.Concurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化本地任务队列失败: %w", err)
	}
	return localClient, nil, nil
}
