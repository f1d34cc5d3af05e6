package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"openrag/internal/rag"
	"openrag/internal/rag/extractors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	enqueued [][2]string
	err      error
}

func (f *fakeQueue) EnqueueIngest(jobID, filePath string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, [2]string{jobID, filePath})
	return nil
}

func (f *fakeQueue) Close() error { return nil }

type noopVectorStore struct {
	deleted []string
}

func (noopVectorStore) Add(ctx context.Context, records []*rag.Record) error { return nil }
func (noopVectorStore) Search(ctx context.Context, v []float32, k int) ([]*rag.SearchResult, error) {
	return nil, nil
}
func (s *noopVectorStore) DeleteByFileName(ctx context.Context, fileName string) error {
	s.deleted = append(s.deleted, fileName)
	return nil
}
func (noopVectorStore) Count(ctx context.Context) (int64, error) { return 0, nil }
func (noopVectorStore) Close() error                             { return nil }

type testEnv struct {
	router    *gin.Engine
	tracker   *rag.JobTracker
	queue     *fakeQueue
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	tracker := rag.NewJobTracker()
	q := &fakeQueue{}
	files := rag.NewFileRegistry(uploadDir, &noopVectorStore{}, tracker)
	h := NewHandler(files, tracker, extractors.NewRegistry(), q)

	router := gin.New()
	router.POST("/api/documents", h.Upload)
	router.GET("/api/documents", h.List)
	router.DELETE("/api/documents/:filename", h.Delete)
	router.GET("/api/jobs/:id", h.JobStatus)

	return &testEnv{router: router, tracker: tracker, queue: q, uploadDir: uploadDir}
}

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadHappyPath(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, "file", "report.pdf", "%PDF-1.4 fake")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			JobID string `json:"job_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.JobID, 12)

	// 文件已落盘
	saved, err := os.ReadFile(filepath.Join(env.uploadDir, "report.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(saved))

	// 任务已注册并入队
	job, ok := env.tracker.Get(resp.Data.JobID)
	require.True(t, ok)
	require.Equal(t, "report.pdf", job.FileName)
	require.Len(t, env.queue.enqueued, 1)
	require.Equal(t, resp.Data.JobID, env.queue.enqueued[0][0])
	require.Equal(t, filepath.Join(env.uploadDir, "report.pdf"), env.queue.enqueued[0][1])
}

func TestUploadUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, "file", "notes.txt", "plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), ".txt")
	require.Contains(t, rec.Body.String(), ".pdf")
	require.Empty(t, env.queue.enqueued)

	_, err := os.Stat(filepath.Join(env.uploadDir, "notes.txt"))
	require.True(t, os.IsNotExist(err), "不支持的文件不应落盘")
}

func TestUploadMissingFileField(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEnqueueFailure(t *testing.T) {
	env := newTestEnv(t)
	env.queue.err = errors.New("queue down")

	body, contentType := multipartBody(t, "file", "report.pdf", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// 入队失败的任务进入 error 终态
	jobs, ok := env.tracker.LatestByFile("report.pdf")
	require.True(t, ok)
	require.Equal(t, rag.StatusError, jobs.Status)
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, os.WriteFile(filepath.Join(env.uploadDir, "a.pdf"), []byte("x"), 0644))
	job := env.tracker.Create("a.pdf")
	env.tracker.Complete(job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Files []rag.FileInfo `json:"files"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Files, 1)
	require.Equal(t, "a.pdf", resp.Data.Files[0].Name)
	require.Equal(t, rag.StatusCompleted, resp.Data.Files[0].Status)
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.uploadDir, "gone.pdf"), []byte("x"), 0644))

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/gone.pdf", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/documents/gone.pdf", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "file not found")
}

func TestJobStatus(t *testing.T) {
	env := newTestEnv(t)
	job := env.tracker.Create("doc.pdf")
	env.tracker.SetProgress(job.ID, 30)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data rag.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, job.ID, resp.Data.ID)
	require.Equal(t, rag.StatusProcessing, resp.Data.Status)
	require.Equal(t, 30, resp.Data.Progress)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/unknown", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "job not found")
}
