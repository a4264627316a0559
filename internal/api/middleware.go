package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vcapture/internal/logging"
)

// quietPaths are polled or streamed continuously by the UI; successful
// requests to them are logged at debug level.
var quietPaths = []string{
	"/api/events",
	"/api/metrics",
	"/api/logs/stream",
	"/api/capture/frame",
	"/api/capture",
	"/api/capture/timing",
}

func isQuietPath(path string) bool {
	for _, p := range quietPaths {
		if path == p {
			return true
		}
	}
	return false
}

// requestLevel picks the log level for a finished request.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == http.MethodOptions, isQuietPath(path):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// HTTPLoggingMiddleware logs each request once it completes.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	path := ctx.URL().Path

	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := ctx.URL().RawQuery; query != "" && !strings.Contains(query, "auth=") {
		attrs = append(attrs, slog.String("query", query))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	logger.LogAttrs(ctx.Context(), requestLevel(method, path, status), "HTTP request completed", attrs...)
}
