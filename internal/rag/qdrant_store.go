package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// QdrantOptions 初始化 Qdrant 向量存储的配置
type QdrantOptions struct {
	Endpoint            string
	APIKey              string
	Collection          string
	VectorDimension     int
	Distance            string
	TimeoutSeconds      int
	HTTPClient          *http.Client
	SkipCollectionCheck bool
}

// QdrantStore 基于 Qdrant HTTP API 的向量存储实现
type QdrantStore struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	vectorSize int
	distance   string
	skipEnsure bool
	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantStore 创建 Qdrant 向量存储实例
func NewQdrantStore(opts QdrantOptions) (*QdrantStore, error) {
	baseURL := strings.TrimSpace(opts.Endpoint)
	if baseURL == "" {
		return nil, fmt.Errorf("qdrant endpoint 不能为空")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	collection := opts.Collection
	if collection == "" {
		collection = CollectionName
	}

	vectorSize := opts.VectorDimension
	if vectorSize <= 0 {
		vectorSize = 1536
	}

	distance := opts.Distance
	if distance == "" {
		distance = "Cosine"
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	store := &QdrantStore{
		client:     client,
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		collection: collection,
		vectorSize: vectorSize,
		distance:   distance,
		skipEnsure: opts.SkipCollectionCheck,
	}

	if err := store.ensureCollection(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// Add 写入或更新一批向量记录
func (s *QdrantStore) Add(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]qdrantPoint, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if len(rec.Embedding) != s.vectorSize {
			return fmt.Errorf("向量维度不匹配: 期望 %d 实际 %d", s.vectorSize, len(rec.Embedding))
		}

		payload := map[string]any{
			"text": rec.Text,
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}

		points = append(points, qdrantPoint{
			ID:      rec.ID,
			Vector:  rec.Embedding,
			Payload: payload,
		})
	}

	req := upsertPointsRequest{Points: points}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPut, s.pointsURL("?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("qdrant upsert 失败: %s", resp.Error)
	}
	return nil
}

// Search 在集合内执行相似度检索
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	req := searchRequest{
		Vector:      queryVector,
		Limit:       topK,
		WithPayload: true,
	}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("qdrant search 失败: %s", resp.Error)
	}

	results := make([]*SearchResult, 0, len(resp.Result))
	for _, item := range resp.Result {
		payload := item.Payload
		text, _ := payload["text"].(string)

		metadata := make(map[string]string, len(payload))
		for k, v := range payload {
			if k == "text" {
				continue
			}
			metadata[k] = fmt.Sprint(v)
		}

		results = append(results, &SearchResult{
			ID:       fmt.Sprint(item.ID),
			Text:     text,
			Score:    item.Score,
			Metadata: metadata,
		})
	}

	return results, nil
}

// DeleteByFileName 按 file_name 载荷字段删除记录
func (s *QdrantStore) DeleteByFileName(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	return s.deleteByFilter(ctx, map[string]string{"file_name": fileName})
}

// Count 返回集合中的记录总数
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	var resp countResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/points/count"), countRequest{}, &resp); err != nil {
		return 0, err
	}
	if resp.Status != "ok" {
		return 0, fmt.Errorf("qdrant count 失败: %s", resp.Error)
	}
	return resp.Result.Count, nil
}

// Close 实现 VectorStore 接口，HTTP 客户端无需释放
func (s *QdrantStore) Close() error {
	return nil
}

// --- 内部辅助 ---

func (s *QdrantStore) collectionPath(path string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(s.collection), path)
}

func (s *QdrantStore) pointsURL(query string) string {
	return fmt.Sprintf("/collections/%s/points%s", url.PathEscape(s.collection), query)
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	if s.skipEnsure {
		return nil
	}
	s.ensureOnce.Do(func() {
		// 先尝试探测集合
		var resp qdrantOperationResponse
		err := s.doRequest(ctx, http.MethodGet, s.collectionPath(""), nil, &resp)
		if err == nil && resp.Status == "ok" {
			s.ensureErr = nil
			return
		}

		createReq := createCollectionRequest{
			Vectors: qdrantVectorParams{
				Size:     s.vectorSize,
				Distance: s.distance,
			},
		}
		s.ensureErr = s.doRequest(ctx, http.MethodPut, s.collectionPath(""), createReq, &resp)
		if s.ensureErr == nil && resp.Status != "ok" {
			s.ensureErr = fmt.Errorf("创建 Qdrant 集合失败: %s", resp.Error)
		}
	})
	return s.ensureErr
}

func (s *QdrantStore) deleteByFilter(ctx context.Context, conditions map[string]string) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	filter := mustMatchFilter(conditions)
	req := deletePointsRequest{Filter: filter}
	var resp qdrantOperationResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("qdrant delete 失败: %s", resp.Error)
	}
	return nil
}

func (s *QdrantStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	fullURL := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("qdrant API 错误: %s (%d)", errBody["status"], resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func mustMatchFilter(values map[string]string) *qdrantFilter {
	if len(values) == 0 {
		return nil
	}
	must := make([]fieldCondition, 0, len(values))
	for k, v := range values {
		if v == "" {
			continue
		}
		must = append(must, fieldCondition{
			Key:   k,
			Match: fieldMatch{Value: v},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrantFilter{Must: must}
}

// --- Qdrant API payloads ---

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertPointsRequest struct {
	Points []qdrantPoint `json:"points"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match fieldMatch `json:"match"`
}

type fieldMatch struct {
	Value any `json:"value"`
}

type qdrantFilter struct {
	Must []fieldCondition `json:"must,omitempty"`
}

type deletePointsRequest struct {
	Points []string      `json:"points,omitempty"`
	Filter *qdrantFilter `json:"filter,omitempty"`
}

type searchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type searchResponse struct {
	Status string              `json:"status"`
	Result []searchResultEntry `json:"result"`
	Error  string              `json:"error"`
}

type searchResultEntry struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantOperationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type countRequest struct {
	Filter *qdrantFilter `json:"filter,omitempty"`
}

type countResponse struct {
	Status string `json:"status"`
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
	Error string `json:"error"`
}
