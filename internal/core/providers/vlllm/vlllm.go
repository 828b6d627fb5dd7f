package vlllm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/platform/config"
	"petvision-server-go/internal/platform/errors"
	"petvision-server-go/internal/platform/observability"
	"petvision-server-go/internal/utils"
)

const (
	TypeGemini = "gemini"
	TypeOpenAI = "openai"
)

// Client 执行一次同步多模态推理。没有重试。
type Client interface {
	Generate(ctx context.Context, req *inference.Request) (*inference.Response, error)
}

// Config VLLLM配置结构，启动时构造一次，之后只读
type Config struct {
	Name       string
	Type       string
	ModelName  string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ConfigFrom converts the selected yaml entry into a provider config.
func ConfigFrom(name string, c config.VLLLMConfig) Config {
	return Config{
		Name:      name,
		Type:      strings.ToLower(c.Type),
		ModelName: c.ModelName,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Timeout:   c.Timeout,
	}
}

// Info 对外暴露的非敏感信息
type Info struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Model string `json:"model"`
}

type backend interface {
	generate(ctx context.Context, req *inference.Request) (*inference.Response, error)
}

// Provider VLLLM提供者，按类型分发到 Gemini 或 OpenAI 兼容接口
type Provider struct {
	config  Config
	logger  *utils.Logger
	backend backend
}

// NewProvider 创建新的VLLLM提供者，需调用 Initialize 后使用
func NewProvider(cfg Config, logger *utils.Logger) (*Provider, error) {
	if cfg.Type == "" {
		cfg.Type = TypeGemini
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Provider{config: cfg, logger: logger}, nil
}

// Initialize 初始化客户端。缺少 API 密钥时立即失败。
func (p *Provider) Initialize(ctx context.Context) error {
	const op = "vlllm.Initialize"

	if strings.TrimSpace(p.config.APIKey) == "" {
		return errors.New(errors.KindConfig, op, fmt.Sprintf("VLLLM %s 缺少 API 密钥", p.config.Name))
	}
	if p.config.ModelName == "" {
		return errors.New(errors.KindConfig, op, "model name is required")
	}

	var (
		b   backend
		err error
	)
	switch strings.ToLower(p.config.Type) {
	case TypeGemini:
		b, err = newGeminiBackend(ctx, p.config)
	case TypeOpenAI:
		b, err = newOpenAIBackend(p.config)
	default:
		return errors.New(errors.KindConfig, op, fmt.Sprintf("不支持的VLLLM类型: %s", p.config.Type))
	}
	if err != nil {
		return errors.Wrap(errors.KindConfig, op, "初始化VLLLM客户端失败", err)
	}
	p.backend = b

	p.logger.InfoTag("推理", "VLLLM Provider初始化成功: type=%s model_name=%s", p.config.Type, p.config.ModelName)
	return nil
}

// Generate 发送图片与指令，返回模型文本。远端错误以 inference 类型返回。
func (p *Provider) Generate(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	const op = "vlllm.Generate"

	if p.backend == nil {
		return nil, errors.New(errors.KindInference, op, "provider not initialised")
	}
	if req == nil || len(req.Image.Data) == 0 {
		return nil, errors.New(errors.KindPrecondition, op, "no image selected")
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	ctx, finish := observability.StartSpan(ctx, "vlllm", "generate")
	start := time.Now()

	p.logger.DebugTag("推理", "invoke vision API: type=%s model_name=%s text_length=%d image_bytes=%d",
		p.config.Type, p.config.ModelName, len(req.Text), len(req.Image.Data))

	resp, err := p.backend.generate(ctx, req)
	elapsed := time.Since(start)
	observability.RecordMetric(ctx, "vision.inference.duration_ms", float64(elapsed.Milliseconds()), map[string]string{
		"type":  p.config.Type,
		"model": p.config.ModelName,
	})
	if err != nil {
		err = errors.Wrap(errors.KindInference, op, "模型服务调用失败", err)
		finish(err)
		p.logger.ErrorTag("推理", "VLLLM 调用失败 type=%s model=%s elapsed=%s: %v", p.config.Type, p.config.ModelName, elapsed, err)
		return nil, err
	}
	finish(nil)

	p.logger.InfoTag("推理", "VLLLM 调用完成 type=%s elapsed=%s text_length=%d blocked=%t finish=%s",
		p.config.Type, elapsed, len(resp.Text), resp.Blocked, resp.FinishReason)
	return resp, nil
}

// Info returns the provider identity without credentials.
func (p *Provider) Info() Info {
	return Info{Name: p.config.Name, Type: p.config.Type, Model: p.config.ModelName}
}

// Cleanup 释放资源
func (p *Provider) Cleanup() error {
	p.logger.InfoTag("推理", "VLLLM Provider cleaned up")
	return nil
}
