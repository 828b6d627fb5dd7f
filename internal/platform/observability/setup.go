package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config 对应 observability.enabled
type Config struct {
	Enabled bool
}

// ShutdownFunc 退出时清除 Setup 安装的 logger
type ShutdownFunc func(context.Context) error

var (
	loggerMu             sync.RWMutex
	instrumentationLog   *slog.Logger
	instrumentationState Config
)

func currentLogger() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return instrumentationLog, instrumentationState
}

// Setup 安装 span 与 metric 写入的 slog logger，即模型调用 (vlllm.generate)
// 与 HTTP 请求 (http.server) 两处埋点的输出目标。Enabled 为 false 时全部丢弃。
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	loggerMu.Lock()
	instrumentationLog = logger
	instrumentationState = cfg
	loggerMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] span/metric logging enabled")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] disabled")
		}
	}
	return func(context.Context) error {
		loggerMu.Lock()
		instrumentationLog = nil
		instrumentationState = Config{}
		loggerMu.Unlock()
		return nil
	}, nil
}
