package rag

import "context"

// CollectionName 向量集合名称，摄取与查询路径共用的固定常量
const CollectionName = "openrag"

// Record 描述一条需要写入向量存储的知识片段
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// SearchResult 描述一次相似度检索的返回结果，按相关度降序
type SearchResult struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// VectorStore 抽象向量写入、检索与删除功能，可由不同后端实现（bbolt 本地、Qdrant 等）。
// DeleteByFileName 对空集合或不存在的过滤目标不报错。
type VectorStore interface {
	Add(ctx context.Context, records []*Record) error
	Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error)
	DeleteByFileName(ctx context.Context, fileName string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
