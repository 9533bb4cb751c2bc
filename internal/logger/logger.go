// Package logger はアプリケーション共通の構造化ロガーを生成します。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New はサービス名を付与した JSON 形式の slog.Logger を返します。
func New(service, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, level)
}

// NewWithWriter は出力先を指定してロガーを生成します。
func NewWithWriter(w io.Writer, service, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With("service", service)
}

// ParseLevel は LOG_LEVEL の文字列を slog.Level に変換します。未知の値は Info とみなします。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
