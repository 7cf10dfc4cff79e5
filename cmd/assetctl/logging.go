package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Log level mapping
var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// sqlQueryMessage is the message the store logs generated SQL under.
const sqlQueryMessage = "sql_query"

// initLogging builds the CLI logger. Everything goes to assetctl.log at the
// configured level; generated SQL goes to assetctl-queries.log and, with
// logQueries, to stdout as well. The returned closer flushes the files.
func initLogging(logLevel string, logQueries bool, stdout io.Writer) (*slog.Logger, func(), error) {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	logDir := getXDGCacheDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "assetctl.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})

	queriesLogPath := filepath.Join(logDir, "assetctl-queries.log")
	queriesLogFile, err := os.OpenFile(queriesLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		_ = logFile.Close()
		return nil, nil, fmt.Errorf("failed to open queries log file: %w", err)
	}

	// Queries are logged at debug by the store and always kept
	var queriesHandler slog.Handler = slog.NewJSONHandler(queriesLogFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	if logQueries {
		stdoutHandler := slog.NewTextHandler(stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		queriesHandler = &multiHandler{
			handlers: []slog.Handler{queriesHandler, stdoutHandler},
		}
	}

	logger := slog.New(&queryRouter{main: fileHandler, queries: queriesHandler})
	logger.Debug("logging initialized",
		"level", level.String(),
		"log_file", logPath,
		"queries_file", queriesLogPath,
		"log_queries_stdout", logQueries)

	closer := func() {
		_ = logFile.Close()
		_ = queriesLogFile.Close()
	}
	return logger, closer, nil
}

// getXDGCacheDir returns the XDG cache directory for assetctl
func getXDGCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "assetctl")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "assetctl")
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "assetctl")
	}

	return filepath.Join(homeDir, ".cache", "assetctl")
}

// queryRouter sends sql_query records to the queries handler and everything
// else to the main handler.
type queryRouter struct {
	main    slog.Handler
	queries slog.Handler
}

func (h *queryRouter) Enabled(ctx context.Context, level slog.Level) bool {
	return h.main.Enabled(ctx, level) || h.queries.Enabled(ctx, level)
}

func (h *queryRouter) Handle(ctx context.Context, record slog.Record) error {
	target := h.main
	if record.Message == sqlQueryMessage {
		target = h.queries
	}
	if !target.Enabled(ctx, record.Level) {
		return nil
	}
	return target.Handle(ctx, record)
}

func (h *queryRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &queryRouter{main: h.main.WithAttrs(attrs), queries: h.queries.WithAttrs(attrs)}
}

func (h *queryRouter) WithGroup(name string) slog.Handler {
	return &queryRouter{main: h.main.WithGroup(name), queries: h.queries.WithGroup(name)}
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
