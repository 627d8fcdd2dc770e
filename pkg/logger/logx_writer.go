package logger

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logxWriter 实现 logx.Writer，把 go-zero 的日志转发到 zap
type logxWriter struct {
	logger *zap.Logger
}

func newLogxWriter(l *zap.Logger) logx.Writer {
	// logx 自身的封装有 3 层调用栈
	return &logxWriter{logger: l.WithOptions(zap.AddCallerSkip(3))}
}

func (w *logxWriter) Alert(v any) {
	w.logger.Error(fmt.Sprint(v), zap.String("alert", "true"))
}

func (w *logxWriter) Close() error {
	return w.logger.Sync()
}

func (w *logxWriter) Debug(v any, fields ...logx.LogField) {
	w.logger.Debug(fmt.Sprint(v), toZapFields(fields)...)
}

func (w *logxWriter) Error(v any, fields ...logx.LogField) {
	w.logger.Error(fmt.Sprint(v), toZapFields(fields)...)
}

func (w *logxWriter) Info(v any, fields ...logx.LogField) {
	w.logger.Info(fmt.Sprint(v), toZapFields(fields)...)
}

func (w *logxWriter) Severe(v any) {
	w.logger.Error(fmt.Sprint(v), zap.String("severity", "severe"))
}

func (w *logxWriter) Slow(v any, fields ...logx.LogField) {
	w.logger.Warn(fmt.Sprint(v), toZapFields(fields)...)
}

func (w *logxWriter) Stack(v any) {
	w.logger.Error(fmt.Sprint(v), zap.Stack("stack"))
}

func (w *logxWriter) Stat(v any, fields ...logx.LogField) {
	w.logger.Info(fmt.Sprint(v), toZapFields(fields)...)
}

func toZapFields(fields []logx.LogField) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func toLogxLevel(level zapcore.Level) uint32 {
	switch {
	case level <= zapcore.DebugLevel:
		return logx.DebugLevel
	case level <= zapcore.WarnLevel:
		return logx.InfoLevel
	default:
		return logx.ErrorLevel
	}
}
