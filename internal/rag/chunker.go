package rag

import (
	"strings"
	"sync"

	"openrag/internal/rag/extractors"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker 文档分块器
// 按固定字符数(rune)切分，相邻分块之间保留重叠区
type Chunker struct {
	ChunkSize    int // 分块大小(字符数)
	ChunkOverlap int // 重叠大小(字符数)
}

// NewChunker 创建新的分块器
// chunkSize: 每个分块的字符数
// chunkOverlap: 相邻分块之间的重叠字符数
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10 // 重叠不超过10%
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ChunkSegments 对一组 Segment 依次分块，保持 Segment 顺序。
// 每个分块长度不超过 ChunkSize；同一 Segment 内相邻分块重叠 ChunkOverlap 个字符
// (最后一块可能不足)；短于 ChunkSize 的 Segment 产出与其等同的单个分块。
// 所有分块原样继承父 Segment 的全部元数据。
func (c *Chunker) ChunkSegments(segments []extractors.Segment) []Chunk {
	chunks := make([]Chunk, 0, len(segments))
	index := 0

	for _, seg := range segments {
		runes := []rune(seg.Text)
		total := len(runes)
		if total == 0 {
			continue
		}

		if total <= c.ChunkSize {
			chunks = append(chunks, Chunk{
				Text:       seg.Text,
				ChunkIndex: index,
				TokenCount: countTokens(seg.Text),
				Metadata:   cloneMetadata(seg.Metadata),
			})
			index++
			continue
		}

		step := c.ChunkSize - c.ChunkOverlap
		for start := 0; start < total; start += step {
			end := start + c.ChunkSize
			if end > total {
				end = total
			}

			text := string(runes[start:end])
			chunks = append(chunks, Chunk{
				Text:       text,
				ChunkIndex: index,
				TokenCount: countTokens(text),
				Metadata:   cloneMetadata(seg.Metadata),
			})
			index++

			if end >= total {
				break
			}
		}
	}

	return chunks
}

// cloneMetadata 复制元数据，分块之间互不共享底层 map
func cloneMetadata(meta map[string]string) map[string]string {
	cloned := make(map[string]string, len(meta))
	for k, v := range meta {
		cloned[k] = v
	}
	return cloned
}

var (
	tokenEncoderOnce sync.Once
	tokenEncoder     *tiktoken.Tiktoken
)

// countTokens 统计 Token 数量。
// 优先使用 cl100k_base 编码；编码不可用(如离线环境)时回退到估算。
func countTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoder = enc
		}
	})
	if tokenEncoder != nil {
		return len(tokenEncoder.Encode(text, nil, nil))
	}
	return estimateTokenCount(text)
}

// estimateTokenCount 估算Token数量
// 简单规则: 英文按单词数, 中文按字符数/1.5
func estimateTokenCount(text string) int {
	wordCount := len(strings.Fields(text))

	chineseCount := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 { // 基本汉字Unicode范围
			chineseCount++
		}
	}

	return wordCount + int(float64(chineseCount)/1.5)
}
