package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextKey type les clés de contexte du paquet.
type ContextKey string

const (
	// RequestIDKey : identifiant de requête HTTP
	RequestIDKey ContextKey = "request_id"
	// DatasetKey : jeu de données en cours de traitement
	DatasetKey ContextKey = "dataset_id"
)

// Config : niveau et format de sortie.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// ParseLevel convertit un nom de niveau ; info par défaut.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installe le logger slog global sur la sortie standard.
func Init(cfg *Config) {
	InitWriter(os.Stdout, cfg)
}

// InitWriter : Init vers w.
func InitWriter(w io.Writer, cfg *Config) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithDataset range l'identifiant du jeu dans ctx.
func WithDataset(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DatasetKey, id)
}

// WithContext renvoie le logger enrichi de request_id et dataset_id.
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if dataset, ok := ctx.Value(DatasetKey).(string); ok && dataset != "" {
		logger = logger.With("dataset_id", dataset)
	}

	return logger
}

func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
