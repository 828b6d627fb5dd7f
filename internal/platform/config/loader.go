package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	errs "petvision-server-go/internal/platform/errors"
)

const (
	EnvAPIKey        = "GOOGLE_API_KEY"
	EnvSessionSecret = "PETVISION_SESSION_SECRET"
	EnvPort          = "PETVISION_PORT"
)

// Loader 按顺序加载 .env、config.yaml 与环境变量覆盖
type Loader struct {
	useDotEnv bool
	paths     []string
	getenv    func(string) string
}

// NewLoader creates a loader that looks for config.yaml in the working directory.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		paths:     []string{".config.yaml", "config.yaml"},
		getenv:    os.Getenv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPaths overrides the candidate config file paths, first match wins.
func (l *Loader) WithPaths(paths ...string) *Loader {
	if len(paths) > 0 {
		l.paths = paths
	}
	return l
}

// WithEnv overrides the environment lookup (useful for tests).
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	if getenv != nil {
		l.getenv = getenv
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load 读取配置。找不到配置文件时使用默认值。
func (l *Loader) Load() (*Result, error) {
	const op = "config.Loader.Load"

	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			// 仅在 .env 不存在时提示，不中断流程
			fmt.Println("未找到 .env 文件，使用系统环境变量")
		}
	}

	cfg := DefaultConfig()
	path := ""
	for _, candidate := range l.paths {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errs.Wrap(errs.KindConfig, op, "读取配置文件失败", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.KindConfig, op, fmt.Sprintf("解析配置文件 %s 失败", candidate), err)
		}
		path = candidate
		break
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfig, op, "环境变量无效", err)
	}

	if err := l.validate(cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfig, op, "配置校验失败", err)
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if key := strings.TrimSpace(l.getenv(EnvAPIKey)); key != "" {
		if name, vcfg, ok := cfg.SelectedVLLLM(); ok {
			vcfg.APIKey = key
			cfg.VLLLM[name] = vcfg
		}
	}
	if secret := strings.TrimSpace(l.getenv(EnvSessionSecret)); secret != "" {
		cfg.Session.Secret = secret
	}
	if raw := strings.TrimSpace(l.getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvPort, raw, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	return cfg.Validate()
}

// Validate 检查启动所需的配置项
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("配置为空")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	name, vcfg, ok := c.SelectedVLLLM()
	if !ok {
		return fmt.Errorf("未找到选中的 VLLLM 配置: %q", c.Selected.VLLLM)
	}
	if strings.TrimSpace(vcfg.APIKey) == "" {
		return fmt.Errorf("VLLLM %s 缺少 API 密钥 (请设置 %s)", name, EnvAPIKey)
	}
	switch strings.ToLower(vcfg.Type) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("VLLLM %s 类型不支持: %q", name, vcfg.Type)
	}
	if vcfg.ModelName == "" {
		return fmt.Errorf("VLLLM %s 缺少 model_name", name)
	}

	if c.Security.MaxFileSize <= 0 {
		return fmt.Errorf("security.max_file_size 必须大于 0")
	}
	if c.Security.MaxPixels < 0 {
		return fmt.Errorf("security.max_pixels 不能为负数")
	}
	if len(c.Security.AllowedFormats) == 0 {
		return fmt.Errorf("security.allowed_formats 不能为空")
	}

	switch strings.ToLower(c.Session.Store.Type) {
	case "", "memory", "sqlite":
	case "redis":
		if c.Session.Store.Redis.Addr == "" {
			return fmt.Errorf("session.store.redis.addr 不能为空")
		}
	default:
		return fmt.Errorf("不支持的会话存储类型: %q", c.Session.Store.Type)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl 必须大于 0")
	}
	return nil
}
