package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Synthesizer 回答合成服务：基于检索到的段落为问题生成回答。
// 对实现方视为黑盒，失败以单个 error 形式上抛。
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, passages []string) (string, error)
}

// OpenAISynthesizer 基于 OpenAI 兼容 Chat API 的回答合成实现。
// BaseURL 可指向 OpenRouter 等兼容网关。
type OpenAISynthesizer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAISynthesizer 创建回答合成服务
func NewOpenAISynthesizer(apiKey, baseURL, model string, maxTokens int) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAISynthesizer{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

const synthesizeSystemPrompt = "You are a helpful assistant that answers questions " +
	"using only the provided context passages. Summarize across all passages. " +
	"If the context does not contain the answer, reply exactly: Empty Response"

// Synthesize 汇总全部段落生成回答
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, question string, passages []string) (string, error) {
	var sb strings.Builder
	for i, passage := range passages {
		fmt.Fprintf(&sb, "[Passage %d]\n%s\n\n", i+1, passage)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("调用 Chat API 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Chat API 返回空响应")
	}

	return resp.Choices[0].Message.Content, nil
}
