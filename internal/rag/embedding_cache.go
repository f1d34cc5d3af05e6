package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbeddingCache 向量缓存，本地 sync.Map 为 L1，Redis 为可选 L2。
// 同一段文本在重复上传或重复提问时不再重复调用外部向量化接口。
type EmbeddingCache struct {
	redis  *redis.Client // 可为 nil，此时只用本地缓存
	local  sync.Map
	prefix string
	ttl    time.Duration
}

type cachedEmbedding struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
}

// NewEmbeddingCache 创建向量缓存，redisClient 为 nil 时退化为纯本地缓存
func NewEmbeddingCache(redisClient *redis.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &EmbeddingCache{
		redis:  redisClient,
		prefix: "openrag:emb:",
		ttl:    ttl,
	}
}

// Get 查询缓存的向量
func (c *EmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	key := c.makeKey(text, model)

	if val, ok := c.local.Load(key); ok {
		return val.(*cachedEmbedding).Vector, true
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached cachedEmbedding
			if json.Unmarshal(data, &cached) == nil {
				c.local.Store(key, &cached)
				return cached.Vector, true
			}
		}
	}

	return nil, false
}

// Set 写入缓存，Redis 写入失败不影响本地缓存
func (c *EmbeddingCache) Set(ctx context.Context, text, model string, vector []float32) {
	key := c.makeKey(text, model)
	cached := &cachedEmbedding{Vector: vector, Model: model}
	c.local.Store(key, cached)

	if c.redis != nil {
		if data, err := json.Marshal(cached); err == nil {
			c.redis.Set(ctx, key, data, c.ttl)
		}
	}
}

func (c *EmbeddingCache) makeKey(text, model string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:16])
}

// CachedEmbeddingProvider 带缓存的向量化提供者装饰器
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	cache    *EmbeddingCache
}

// NewCachedEmbeddingProvider 包装底层提供者，命中缓存时跳过外部调用
func NewCachedEmbeddingProvider(provider EmbeddingProvider, cache *EmbeddingCache) *CachedEmbeddingProvider {
	return &CachedEmbeddingProvider{
		provider: provider,
		cache:    cache,
	}
}

// Embed 单条向量化，优先走缓存
func (p *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.provider.GetModel()
	if vec, ok := p.cache.Get(ctx, text, model); ok {
		return vec, nil
	}

	vec, err := p.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, text, model, vec)
	return vec, nil
}

// EmbedBatch 批量向量化，只把未命中的文本发给底层提供者
func (p *CachedEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := p.provider.GetModel()

	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := p.cache.Get(ctx, text, model); ok {
			results[i] = vec
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}

	if len(missing) == 0 {
		return results, nil
	}

	fetched, err := p.provider.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range fetched {
		idx := missingIdx[j]
		results[idx] = vec
		p.cache.Set(ctx, texts[idx], model, vec)
	}

	return results, nil
}

// GetModel 返回底层提供者的模型名
func (p *CachedEmbeddingProvider) GetModel() string {
	return p.provider.GetModel()
}
