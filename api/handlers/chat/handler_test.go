package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"openrag/internal/rag"
	"openrag/internal/rag/extractors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubVectorStore struct {
	count   int64
	results []*rag.SearchResult
}

func (s *stubVectorStore) Add(ctx context.Context, records []*rag.Record) error { return nil }
func (s *stubVectorStore) Search(ctx context.Context, v []float32, k int) ([]*rag.SearchResult, error) {
	return s.results, nil
}
func (s *stubVectorStore) DeleteByFileName(ctx context.Context, fileName string) error { return nil }
func (s *stubVectorStore) Count(ctx context.Context) (int64, error)                    { return s.count, nil }
func (s *stubVectorStore) Close() error                                                { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}
func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (stubEmbedder) GetModel() string { return "stub" }

type stubSynthesizer struct {
	answer string
	err    error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, question string, passages []string) (string, error) {
	return s.answer, s.err
}

func newChatRouter(store *stubVectorStore, synth *stubSynthesizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := rag.NewQueryService(store, stubEmbedder{}, synth, 5)
	router := gin.New()
	router.POST("/api/chat", NewHandler(svc).Ask)
	return router
}

func postChat(t *testing.T, router *gin.Engine, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAskHappyPath(t *testing.T) {
	store := &stubVectorStore{
		count: 1,
		results: []*rag.SearchResult{
			{Text: "context passage", Metadata: map[string]string{
				extractors.MetaFileName:  "manual.pdf",
				extractors.MetaPageLabel: "7",
			}},
		},
	}
	router := newChatRouter(store, &stubSynthesizer{answer: "Because of X."})

	rec := postChat(t, router, `{"question":"why?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    rag.QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Because of X.", resp.Data.Answer)
	require.Len(t, resp.Data.Sources, 1)
	require.Equal(t, "manual.pdf", resp.Data.Sources[0].FileName)
	require.Equal(t, "7", resp.Data.Sources[0].Page)
}

func TestAskEmptyIndex(t *testing.T) {
	router := newChatRouter(&stubVectorStore{count: 0}, &stubSynthesizer{answer: "x"})

	rec := postChat(t, router, `{"question":"anything?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No documents have been indexed yet. Please upload files first.")
}

func TestAskValidation(t *testing.T) {
	router := newChatRouter(&stubVectorStore{count: 1}, &stubSynthesizer{answer: "x"})

	rec := postChat(t, router, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, router, `{"question":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, router, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskSynthesizerFailure(t *testing.T) {
	store := &stubVectorStore{count: 1, results: []*rag.SearchResult{{Text: "p"}}}
	router := newChatRouter(store, &stubSynthesizer{err: errors.New("llm unavailable")})

	rec := postChat(t, router, `{"question":"q"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "llm unavailable")
}
