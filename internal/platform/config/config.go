package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Log      LogConfig              `yaml:"log"`
	Web      WebConfig              `yaml:"web"`
	Session  SessionConfig          `yaml:"session"`
	Security SecurityConfig         `yaml:"security"`
	Selected SelectedConfig         `yaml:"selected_module"`
	VLLLM    map[string]VLLLMConfig `yaml:"VLLLM"`

	Observability ObservabilityConfig `yaml:"observability"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
	Title     string `yaml:"title"`
}

// SessionConfig 浏览器会话配置
type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Store      StoreConfig   `yaml:"store"`
}

type StoreConfig struct {
	Type    string        `yaml:"type"`
	Cleanup time.Duration `yaml:"cleanup"`
	Redis   SessionRedis  `yaml:"redis,omitempty"`
	SQLite  SessionSQLite `yaml:"sqlite,omitempty"`
}

type SessionRedis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SessionSQLite struct {
	Path string `yaml:"path,omitempty"`
}

// SecurityConfig 上传图片的约束
type SecurityConfig struct {
	MaxFileSize     int64    `yaml:"max_file_size"`
	AllowedFormats  []string `yaml:"allowed_formats"`
	VerifySignature bool     `yaml:"verify_signature"`
	PreviewWidth    int      `yaml:"preview_width"`
	MaxPixels       int64    `yaml:"max_pixels"` // 预览解码的像素上限
}

type SelectedConfig struct {
	VLLLM string `yaml:"VLLLM"`
}

// VLLLMConfig 多模态模型配置
type VLLLMConfig struct {
	Type          string        `yaml:"type"`
	ModelName     string        `yaml:"model_name"`
	BaseURL       string        `yaml:"url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	ImageMIMEType string        `yaml:"image_mime_type"`
}

// SelectedVLLLM 返回当前选中的多模态模型配置
func (c *Config) SelectedVLLLM() (string, VLLLMConfig, bool) {
	if c == nil || c.Selected.VLLLM == "" {
		return "", VLLLMConfig{}, false
	}
	cfg, ok := c.VLLLM[c.Selected.VLLLM]
	return c.Selected.VLLLM, cfg, ok
}
