package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"workmap/internal/common/contextx"
)

func New(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}).WithAttrs([]slog.Attr{
		slog.String("service", service),
	})
	slog.SetDefault(slog.New(handler))

	return slog.New(handler)
}

func Info(ctx context.Context, log *slog.Logger, action, message string, args ...any) {
	log.Info(message, append(base(ctx, action), args...)...)
}

func Warn(ctx context.Context, log *slog.Logger, action, message string, args ...any) {
	log.Warn(message, append(base(ctx, action), args...)...)
}

func Error(ctx context.Context, log *slog.Logger, action, message string, err error, args ...any) {
	attrs := append(base(ctx, action), args...)
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			"msg", err.Error(),
			"stack", shortStack(3, 8),
		))
	}
	log.Error(message, attrs...)
}

func base(ctx context.Context, action string) []any {
	return []any{
		"action", action,
		"hostname", hostname(),
		"request_id", contextx.GetRequestID(ctx),
		"session_id", contextx.GetSessionID(ctx),
	}
}

func shortStack(skip, max int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	count := 0
	for {
		f, more := frames.Next()
		fn := f.Function
		if strings.HasPrefix(fn, "runtime.") || strings.Contains(fn, "/logger.") {
			if !more {
				break
			}
			continue
		}
		file := filepath.Base(f.File)
		if i := strings.LastIndex(fn, "."); i >= 0 && i+1 < len(fn) {
			fn = fn[i+1:]
		}
		fmt.Fprintf(&b, "%s %s:%d\n", fn, file, f.Line)
		count++
		if count >= max || !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func hostname() string {
	name, _ := os.Hostname()
	return name
}