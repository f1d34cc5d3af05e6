package rag

import (
	"strings"
	"testing"

	"openrag/internal/rag/extractors"

	"github.com/stretchr/testify/require"
)

func TestChunkerShortSegment(t *testing.T) {
	c := NewChunker(100, 10)

	segs := []extractors.Segment{
		{Text: "短文本", Metadata: map[string]string{extractors.MetaFileName: "a.pdf"}},
	}

	chunks := c.ChunkSegments(segs)
	require.Len(t, chunks, 1)
	require.Equal(t, "短文本", chunks[0].Text)
	require.Equal(t, 0, chunks[0].ChunkIndex)
	require.Equal(t, "a.pdf", chunks[0].Metadata[extractors.MetaFileName])
}

func TestChunkerSizeAndOverlap(t *testing.T) {
	c := NewChunker(10, 3)

	text := strings.Repeat("abcdefghij", 5) // 50 字符
	chunks := c.ChunkSegments([]extractors.Segment{{Text: text}})

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		require.LessOrEqual(t, len([]rune(ch.Text)), 10)
	}

	// 相邻分块共享恰好 overlap 个字符
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		if len(prev) == 10 {
			tail := string(prev[len(prev)-3:])
			head := string(cur[:3])
			require.Equal(t, tail, head, "分块 %d 与前一块的重叠区不一致", i)
		}
	}

	// 去掉重叠区拼接后应还原原文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i].Text)
		rebuilt.WriteString(string(runes[3:]))
	}
	require.Equal(t, text, rebuilt.String())
}

func TestChunkerOrderAndIndex(t *testing.T) {
	c := NewChunker(10, 2)

	segs := []extractors.Segment{
		{Text: strings.Repeat("a", 25), Metadata: map[string]string{extractors.MetaPageLabel: "1"}},
		{Text: "tail", Metadata: map[string]string{extractors.MetaPageLabel: "2"}},
	}
	chunks := c.ChunkSegments(segs)
	require.GreaterOrEqual(t, len(chunks), 3)

	for i, ch := range chunks {
		require.Equal(t, i, ch.ChunkIndex)
	}
	require.Equal(t, "2", chunks[len(chunks)-1].Metadata[extractors.MetaPageLabel])
	require.Equal(t, "tail", chunks[len(chunks)-1].Text)
}

func TestChunkerMetadataNotShared(t *testing.T) {
	c := NewChunker(5, 1)

	meta := map[string]string{extractors.MetaFileName: "x.xlsx"}
	chunks := c.ChunkSegments([]extractors.Segment{{Text: "abcdefghij", Metadata: meta}})
	require.GreaterOrEqual(t, len(chunks), 2)

	chunks[0].Metadata["extra"] = "1"
	_, leaked := chunks[1].Metadata["extra"]
	require.False(t, leaked, "分块之间不应共享元数据 map")
	_, polluted := meta["extra"]
	require.False(t, polluted)
}

func TestChunkerSkipsEmptySegment(t *testing.T) {
	c := NewChunker(10, 2)

	chunks := c.ChunkSegments([]extractors.Segment{
		{Text: ""},
		{Text: "data"},
	})
	require.Len(t, chunks, 1)
	require.Equal(t, "data", chunks[0].Text)
}

func TestNewChunkerClampsInvalidConfig(t *testing.T) {
	c := NewChunker(0, -1)
	require.Equal(t, 1024, c.ChunkSize)
	require.Equal(t, 0, c.ChunkOverlap)

	c = NewChunker(100, 100)
	require.Equal(t, 10, c.ChunkOverlap)
}

func TestEstimateTokenCount(t *testing.T) {
	require.Equal(t, 2, estimateTokenCount("hello world"))
	require.Equal(t, 3, estimateTokenCount("中文文本")) // 1 个字段 + 4 个汉字/1.5
	require.Equal(t, 0, estimateTokenCount(""))
}
