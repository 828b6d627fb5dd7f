package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "./web",
			Title:     "PetVision",
		},
		Session: SessionConfig{
			CookieName: "petvision_session",
			TTL:        time.Hour,
			Store: StoreConfig{
				Type:    "memory",
				Cleanup: 5 * time.Minute,
				SQLite: SessionSQLite{
					Path: "data/petvision.db",
				},
				Redis: SessionRedis{
					Prefix: "petvision:session:",
				},
			},
		},
		Security: SecurityConfig{
			MaxFileSize:     10 * 1024 * 1024,
			AllowedFormats:  []string{"png", "jpg", "jpeg"},
			VerifySignature: false,
			PreviewWidth:    200,
			MaxPixels:       16777216,
		},
		Selected: SelectedConfig{
			VLLLM: "GeminiVLLM",
		},
		VLLLM: map[string]VLLLMConfig{
			"GeminiVLLM": {
				Type:          "gemini",
				ModelName:     "gemini-1.5-pro-latest",
				ImageMIMEType: "image/jpeg",
			},
			"GeminiOpenAIVLLM": {
				Type:          "openai",
				ModelName:     "gemini-1.5-pro-latest",
				BaseURL:       "https://generativelanguage.googleapis.com/v1beta/openai/",
				ImageMIMEType: "image/jpeg",
			},
		},
	}
}
