package observability

import (
	"context"
	"log/slog"
	"time"
)

// Enabled 是否开启埋点
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

func activeLogger() *slog.Logger {
	logger, cfg := currentLogger()
	if !cfg.Enabled {
		return nil
	}
	return logger
}

// StartSpan 以 debug 日志记录一次调用的开始与结束，出错时升为 error。
// component 目前为 vlllm 和 http.server
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger := activeLogger()
	if logger == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

// RecordMetric 写一条指标日志，例如 vision.inference.duration_ms、
// http.requests。未开启时直接返回
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger := activeLogger()
	if logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
