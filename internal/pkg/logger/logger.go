// Package logger 提供基于 log/slog 的默认日志构造。
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 根据配置的级别字符串创建文本格式的 slog.Logger。
//
// 支持的级别: debug / info / warn / error，未知值回退为 info。
func NewDefault(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
