// Package logger is a thin package-level wrapper around log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	level = new(slog.LevelVar)
	log   *slog.Logger
)

func init() {
	if os.Getenv("LOREKEEPER_DEBUG") == "true" {
		level.Set(slog.LevelDebug)
	}
	SetOutput(os.Stderr)
}

// SetOutput redirects log output to w.
func SetOutput(w io.Writer) {
	log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetLevel sets the minimum level by name: debug, info, warn or error.
// Unknown names leave the level unchanged. LOREKEEPER_DEBUG=true always wins.
func SetLevel(name string) {
	if os.Getenv("LOREKEEPER_DEBUG") == "true" {
		return
	}
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}
