package main

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件轮转参数。
const (
	logMaxSizeMB  = 100
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// newLogger 创建日志记录器。
// 指定 --log-file 时输出 JSON 到轮转文件，否则输出文本到 stderr。
// stdout 留给命令结果，脚本可安全地解析。
func newLogger(logFile string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logFile != "" {
		w := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
