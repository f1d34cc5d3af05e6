package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"openrag/internal/ai"
	"openrag/internal/logger"
	"openrag/internal/metrics"
	"openrag/internal/rag/extractors"

	"go.uber.org/zap"
)

// 用户可见的固定回答文案
const (
	emptyIndexAnswer = "No documents have been indexed yet. Please upload files first."
	noAnswerFallback = "No relevant information found in the indexed documents."

	// 合成服务"无答案"哨兵值，大小写不敏感匹配
	noAnswerSentinel = "empty response"

	// 引用文本预览截断长度(字符)
	previewLimit = 200
)

// QueryService 检索与回答装配服务。
// 对持久化状态只读，除外部调用外无副作用。
type QueryService struct {
	store       VectorStore
	embedder    EmbeddingProvider
	synthesizer ai.Synthesizer
	topK        int
}

// NewQueryService 创建问答服务
func NewQueryService(store VectorStore, embedder EmbeddingProvider, synthesizer ai.Synthesizer, topK int) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		store:       store,
		embedder:    embedder,
		synthesizer: synthesizer,
		topK:        topK,
	}
}

// Answer 对已索引文档执行一次 RAG 问答。
// 查询路径任何一步失败都整体报错，不返回部分结果。
func (s *QueryService) Answer(ctx context.Context, question string) (*QueryResult, error) {
	start := time.Now()

	result, err := s.answer(ctx, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(StatusError).Inc()
		return nil, err
	}

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

func (s *QueryService) answer(ctx context.Context, question string) (*QueryResult, error) {
	// 1. 空索引直接返回固定文案，不发起检索与合成调用
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询向量数量失败: %w", err)
	}
	if count == 0 {
		return &QueryResult{
			Answer:  emptyIndexAnswer,
			Sources: []SourceRef{},
		}, nil
	}

	// 2. 相似度检索
	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}

	results, err := s.store.Search(ctx, queryVector, s.topK)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	// 3. 合成回答
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Text
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("合成回答失败: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || strings.ToLower(answer) == noAnswerSentinel {
		answer = noAnswerFallback
	}

	logger.Debug("问答完成",
		zap.Int("retrieved", len(results)),
		zap.Int("answer_len", len(answer)),
	)

	return &QueryResult{
		Answer:  answer,
		Sources: buildSources(results),
	}, nil
}

// buildSources 按检索排名顺序装配引用列表。
// 同一 (file_name, page, sheet) 组合只保留排名最高的一条，
// 预览文本截断到 previewLimit 个字符。
func buildSources(results []*SearchResult) []SourceRef {
	sources := make([]SourceRef, 0, len(results))
	seen := make(map[[3]string]struct{}, len(results))

	for _, r := range results {
		fileName := r.Metadata[extractors.MetaFileName]
		if fileName == "" {
			fileName = "unknown"
		}
		page := r.Metadata[extractors.MetaPageLabel]
		sheet := r.Metadata[extractors.MetaSheetName]

		key := [3]string{fileName, page, sheet}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		sources = append(sources, SourceRef{
			FileName:    fileName,
			Page:        page,
			Sheet:       sheet,
			TextPreview: truncateRunes(r.Text, previewLimit),
		})
	}

	return sources
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
