package rag

import "context"

// EmbeddingProvider 抽象不同向量模型/服务的统一接口。
// 对同一模型配置，Embed 结果确定且无副作用。
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
}
