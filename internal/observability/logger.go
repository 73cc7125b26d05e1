package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/couchcryptid/climate-dashboard/internal/config"
)

// NewLogger builds the service logger from LOG_FORMAT and LOG_LEVEL and
// installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var h slog.Handler
	switch cfg.LogFormat {
	case "tint":
		h = tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	return slog.New(h).With("service", "climate-dashboard")
}
