package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how structured logs are written.
type Options struct {
	// Level is the minimum level emitted. Defaults to info.
	Level slog.Level
	// FilePath, when set, mirrors all log lines to a size-rotated file in
	// addition to stdout.
	FilePath string
	// MaxSizeMB bounds a single rotated file. Defaults to 100.
	MaxSizeMB int
	// MaxBackups bounds how many rotated files are kept. Defaults to 5.
	MaxBackups int
}

// replaceAttr renames the default slog keys to the sink's field names and
// masks values logged under sensitive keys.
func replaceAttr(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey {
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	}
	if attr.Key == slog.LevelKey {
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	}
	if attr.Key == slog.MessageKey {
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	if IsSensitive(attr.Key) {
		return MaskField(attr.Key, attr.Value.String())
	}
	return attr
}

// Setup configures the standard library logger to emit structured JSON and
// returns the underlying slog.Logger for richer logging within the service.
// All log lines carry the service name and environment when provided.
func Setup(service, env string, opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if strings.TrimSpace(opts.FilePath) != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		})
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   false,
		ReplaceAttr: replaceAttr,
	})

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to
	// work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
