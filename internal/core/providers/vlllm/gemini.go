package vlllm

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"petvision-server-go/internal/domain/inference"
)

type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, cfg Config) (*geminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &geminiBackend{client: client, model: cfg.ModelName}, nil
}

func (g *geminiBackend) generate(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	contents, genCfg := toGemini(req)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return nil, err
	}
	return fromGemini(resp), nil
}

// toGemini 图片在前，文本在后，放在同一个 user content 中
func toGemini(req *inference.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType),
		genai.NewPartFromText(req.Text),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	gen := req.Generation
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(gen.Temperature),
		TopP:            genai.Ptr(gen.TopP),
		MaxOutputTokens: gen.MaxOutputTokens,
	}
	// top_k 为 0 表示不限制，不下发
	if gen.TopK > 0 {
		cfg.TopK = genai.Ptr(gen.TopK)
	}
	for _, s := range req.Safety {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return contents, cfg
}

// fromGemini 被安全策略拦截或没有候选时返回空文本，不视为错误
func fromGemini(resp *genai.GenerateContentResponse) *inference.Response {
	out := &inference.Response{}
	if resp == nil {
		return out
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		out.Blocked = true
		out.FinishReason = string(fb.BlockReason)
		return out
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}

	cand := resp.Candidates[0]
	out.FinishReason = string(cand.FinishReason)
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		out.Blocked = true
		return out
	}
	if cand.Content == nil {
		return out
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	out.Text = sb.String()
	return out
}
