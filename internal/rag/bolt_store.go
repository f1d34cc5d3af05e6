package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// BoltStore 基于 bbolt 的本地持久化向量存储。
// 集合落盘在配置的持久化目录下，检索为全量扫描 + 余弦相似度，
// 适合单机、中小规模索引。
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore 在 persistDir 下打开(或创建)集合数据库
func NewBoltStore(persistDir string) (*BoltStore, error) {
	if err := os.MkdirAll(persistDir, 0755); err != nil {
		return nil, fmt.Errorf("创建持久化目录失败: %w", err)
	}

	path := filepath.Join(persistDir, CollectionName+".db")
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开向量数据库失败: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化向量集合失败: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// boltRecord 落盘格式
type boltRecord struct {
	Embedding []float32         `json:"embedding"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
}

// Add 写入一批向量记录
func (s *BoltStore) Add(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, rec := range records {
			if rec == nil {
				continue
			}
			data, err := json.Marshal(boltRecord{
				Embedding: rec.Embedding,
				Text:      rec.Text,
				Metadata:  rec.Metadata,
			})
			if err != nil {
				return fmt.Errorf("序列化向量记录失败: %w", err)
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Search 全量扫描并返回与查询向量余弦相似度最高的 topK 条记录
func (s *BoltStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	var results []*SearchResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("反序列化向量记录失败: %w", err)
			}
			results = append(results, &SearchResult{
				ID:       string(k),
				Text:     rec.Text,
				Score:    cosineSimilarity(queryVector, rec.Embedding),
				Metadata: rec.Metadata,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByFileName 删除 file_name 元数据匹配的全部记录。
// 没有匹配记录不算错误。
func (s *BoltStore) DeleteByFileName(ctx context.Context, fileName string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Metadata["file_name"] == fileName {
				key := make([]byte, len(k))
				copy(key, k)
				keys = append(keys, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count 返回集合中的记录总数
func (s *BoltStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = int64(tx.Bucket(bucketRecords).Stats().KeyN)
		return nil
	})
	return count, err
}

// Close 关闭底层数据库
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity 计算两个向量的余弦相似度，维度不一致时按 0 处理
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
