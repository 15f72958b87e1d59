// Package logger 对 zerolog 做了一层很薄的封装，统一服务的日志格式。
package logger

import (
	"context"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init 配置全局 logger，在 main 中调用一次。
func Init(serviceName, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zlog.Logger = zlog.With().Str("service", serviceName).Logger()
}

// Ctx 返回 context 中携带的 logger，没有时退回全局 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &zlog.Logger
	}
	return l
}

// WithTraceID 把带 trace_id 的 logger 放进 context。
func WithTraceID(ctx context.Context, traceID string) context.Context {
	l := zlog.With().Str("trace_id", traceID).Logger()
	return l.WithContext(ctx)
}
