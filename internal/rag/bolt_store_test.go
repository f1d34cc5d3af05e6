package rag

import (
	"context"
	"testing"

	"openrag/internal/rag/extractors"

	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func boltRecordFixture(id, text, fileName string, embedding []float32) *Record {
	return &Record{
		ID:        id,
		Embedding: embedding,
		Text:      text,
		Metadata:  map[string]string{extractors.MetaFileName: fileName},
	}
}

func TestBoltStoreAddAndCount(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, store.Add(ctx, []*Record{
		boltRecordFixture("r1", "alpha", "a.pdf", []float32{1, 0}),
		boltRecordFixture("r2", "beta", "a.pdf", []float32{0, 1}),
	}))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// 同 ID 再写入是覆盖而不是追加
	require.NoError(t, store.Add(ctx, []*Record{
		boltRecordFixture("r1", "alpha v2", "a.pdf", []float32{1, 0}),
	}))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestBoltStoreSearchRanking(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []*Record{
		boltRecordFixture("r1", "exact match", "a.pdf", []float32{1, 0}),
		boltRecordFixture("r2", "orthogonal", "a.pdf", []float32{0, 1}),
		boltRecordFixture("r3", "close", "b.pdf", []float32{0.9, 0.1}),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "exact match", results[0].Text)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.Equal(t, "close", results[1].Text)
	require.Greater(t, results[0].Score, results[1].Score)
	require.Equal(t, "a.pdf", results[0].Metadata[extractors.MetaFileName])
}

func TestBoltStoreSearchEmptyCollection(t *testing.T) {
	store := newTestBoltStore(t)

	results, err := store.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, results)

	_, err = store.Search(context.Background(), nil, 5)
	require.Error(t, err)
}

func TestBoltStoreDeleteByFileName(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []*Record{
		boltRecordFixture("r1", "one", "gone.pdf", []float32{1, 0}),
		boltRecordFixture("r2", "two", "gone.pdf", []float32{0, 1}),
		boltRecordFixture("r3", "three", "keep.pdf", []float32{1, 1}),
	}))

	require.NoError(t, store.DeleteByFileName(ctx, "gone.pdf"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	results, err := store.Search(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "keep.pdf", results[0].Metadata[extractors.MetaFileName])

	// 不存在的文件名不报错
	require.NoError(t, store.DeleteByFileName(ctx, "missing.pdf"))
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{1, 2}), 1e-9)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// 维度不一致或零向量按 0 处理
	require.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	require.Zero(t, cosineSimilarity(nil, nil))
}
