package vlllm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"petvision-server-go/internal/domain/inference"
)

// OpenAI 兼容接口没有 top_k 与安全阈值，这两项不下发
type openaiBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(cfg Config) (*openaiBackend, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	return &openaiBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ModelName,
	}, nil
}

func (o *openaiBackend) generate(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	resp, err := o.client.CreateChatCompletion(ctx, toOpenAI(o.model, req))
	if err != nil {
		return nil, err
	}

	out := &inference.Response{}
	if len(resp.Choices) == 0 {
		return out, nil
	}
	choice := resp.Choices[0]
	out.FinishReason = string(choice.FinishReason)
	if choice.FinishReason == openai.FinishReasonContentFilter {
		out.Blocked = true
		return out, nil
	}
	out.Text = choice.Message.Content
	return out, nil
}

func toOpenAI(model string, req *inference.Request) openai.ChatCompletionRequest {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MIMEType, base64.StdEncoding.EncodeToString(req.Image.Data))

	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Text,
					},
				},
			},
		},
		Temperature: req.Generation.Temperature,
		TopP:        req.Generation.TopP,
		MaxTokens:   int(req.Generation.MaxOutputTokens),
	}
}
