package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/zeromicro/go-zero/core/logx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "txengine.log"

// LogOption 日志初始化参数
type LogOption struct {
	Format     string // "console" 或 "json"
	LogDir     string // 为空时只输出到 stdout
	Level      string // debug / info / warn / error
	Compress   bool   // 是否压缩旧日志文件
	MaxSizeMB  int    // 单个文件大小上限，默认 100MB
	MaxBackups int    // 保留的旧文件个数，默认 10
	MaxAgeDays int    // 旧文件保留天数，默认 7
}

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	l, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
	sugar.Store(l.Sugar())
}

// Init 初始化全局 zap logger，并把 go-zero logx 的输出也接到同一个 zap core 上
func Init(opt LogOption) error {
	level := zapcore.InfoLevel
	if opt.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opt.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opt.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", opt.LogDir, err)
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, logFileName),
			MaxSize:    withDefault(opt.MaxSizeMB, 100),
			MaxBackups: withDefault(opt.MaxBackups, 10),
			MaxAge:     withDefault(opt.MaxAgeDays, 7),
			Compress:   opt.Compress,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	base := zap.New(core, zap.AddCaller())
	sugar.Store(base.WithOptions(zap.AddCallerSkip(1)).Sugar())

	logx.SetWriter(newLogxWriter(base))
	logx.SetLevel(toLogxLevel(level))
	return nil
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func Sync() {
	_ = sugar.Load().Sync()
}

func Debugf(format string, args ...any) {
	sugar.Load().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	sugar.Load().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	sugar.Load().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	sugar.Load().Errorf(format, args...)
}
