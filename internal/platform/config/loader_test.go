package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "petvision-server-go/internal/platform/errors"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoader_Load(t *testing.T) {
	// 创建临时配置文件
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
session:
  ttl: 30m
  store:
    type: sqlite
    sqlite:
      path: "/tmp/petvision-test.db"
security:
  max_file_size: 1024
  allowed_formats: ["png", "jpg", "jpeg"]
  verify_signature: true
  preview_width: 120
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))

	res, err := NewLoader().
		WithDotEnv(false).
		WithPaths(configFile).
		WithEnv(envMap(map[string]string{EnvAPIKey: "test-key"})).
		Load()
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, configFile, res.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "sqlite", cfg.Session.Store.Type)
	assert.Equal(t, int64(1024), cfg.Security.MaxFileSize)
	assert.True(t, cfg.Security.VerifySignature)
	assert.Equal(t, 120, cfg.Security.PreviewWidth)

	// 未在文件中出现的字段保持默认值
	assert.Equal(t, "petvision_session", cfg.Session.CookieName)
	name, vcfg, ok := cfg.SelectedVLLLM()
	require.True(t, ok)
	assert.Equal(t, "GeminiVLLM", name)
	assert.Equal(t, "test-key", vcfg.APIKey)
	assert.Equal(t, "gemini-1.5-pro-latest", vcfg.ModelName)
}

func TestLoader_NoFileUsesDefaults(t *testing.T) {
	res, err := NewLoader().
		WithDotEnv(false).
		WithPaths(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnv(envMap(map[string]string{EnvAPIKey: "k"})).
		Load()
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Equal(t, 8080, res.Config.Server.Port)
	assert.Equal(t, 200, res.Config.Security.PreviewWidth)
	assert.Equal(t, int64(16777216), res.Config.Security.MaxPixels)
}

func TestLoader_MissingAPIKeyFailsFast(t *testing.T) {
	_, err := NewLoader().
		WithDotEnv(false).
		WithPaths(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnv(envMap(nil)).
		Load()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
	assert.Contains(t, err.Error(), EnvAPIKey)
}

func TestLoader_EnvOverrides(t *testing.T) {
	res, err := NewLoader().
		WithDotEnv(false).
		WithPaths(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnv(envMap(map[string]string{
			EnvAPIKey:        "k",
			EnvSessionSecret: "s3cret",
			EnvPort:          "18080",
		})).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", res.Config.Session.Secret)
	assert.Equal(t, 18080, res.Config.Server.Port)

	_, err = NewLoader().
		WithDotEnv(false).
		WithPaths(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnv(envMap(map[string]string{EnvAPIKey: "k", EnvPort: "abc"})).
		Load()
	assert.Error(t, err)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := NewLoader().WithDotEnv(false).WithPaths(path).WithEnv(envMap(nil)).Load()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfig))
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	valid := func() *Config {
		cfg := DefaultConfig()
		vcfg := cfg.VLLLM["GeminiVLLM"]
		vcfg.APIKey = "key"
		cfg.VLLLM["GeminiVLLM"] = vcfg
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown selected model", mutate: func(c *Config) { c.Selected.VLLLM = "nope" }, wantErr: true},
		{name: "unsupported provider type", mutate: func(c *Config) {
			v := c.VLLLM["GeminiVLLM"]
			v.Type = "ollama"
			c.VLLLM["GeminiVLLM"] = v
		}, wantErr: true},
		{name: "openai provider type", mutate: func(c *Config) {
			v := c.VLLLM["GeminiOpenAIVLLM"]
			v.APIKey = "key"
			c.VLLLM["GeminiOpenAIVLLM"] = v
			c.Selected.VLLLM = "GeminiOpenAIVLLM"
		}, wantErr: false},
		{name: "zero max file size", mutate: func(c *Config) { c.Security.MaxFileSize = 0 }, wantErr: true},
		{name: "negative max pixels", mutate: func(c *Config) { c.Security.MaxPixels = -1 }, wantErr: true},
		{name: "zero max pixels falls back to default", mutate: func(c *Config) { c.Security.MaxPixels = 0 }, wantErr: false},
		{name: "empty allow list", mutate: func(c *Config) { c.Security.AllowedFormats = nil }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Session.Store.Type = "redis" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store.Type = "etcd" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
