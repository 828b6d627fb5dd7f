package logging

import (
	"fmt"
	"log/slog"

	"petvision-server-go/internal/utils"
)

// Config 对应配置文件中的 log 段
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger 包装 utils.Logger，同一个日志文件上提供带标签接口与 slog 接口
type Logger struct {
	legacy *utils.Logger
}

// New 打开日志文件
func New(cfg Config) (*Logger, error) {
	legacy, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &Logger{legacy: legacy}, nil
}

// Legacy 返回带标签的 logger (视觉、会话、推理、HTTP 等)，
// analysis、vision 与 pipeline 都通过它写日志
func (l *Logger) Legacy() *utils.Logger {
	return l.legacy
}

// Slog 返回 slog 接口，交给 observability.Setup 输出 span 与 metric
func (l *Logger) Slog() *slog.Logger {
	return l.legacy.Slog()
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	return l.legacy.Close()
}
