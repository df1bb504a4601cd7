package split

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitio/go-toolkit/v5/logging"
)

var _ logging.LoggerInterface = (*SlogToSplitAdapter)(nil)

// SlogToSplitAdapter routes Split SDK logs into a *slog.Logger so the SDK
// and the provider share one handler.
//
// New installs it automatically when the Split configuration has no
// logger. Install it yourself to give the SDK a different logger:
//
//	cfg := conf.Default()
//	cfg.Logger = split.NewSplitLogger(sdkLogger)
//	provider, _ := split.New(apiKey, split.WithSplitConfig(cfg))
type SlogToSplitAdapter struct {
	logger *slog.Logger
}

// NewSplitLogger wraps logger, or slog.Default() when logger is nil.
func NewSplitLogger(logger *slog.Logger) *SlogToSplitAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogToSplitAdapter{logger: logger}
}

// The SDK logs variadic values: the first is the message and any others are
// attached as a "details" attribute.

func (a *SlogToSplitAdapter) Error(msg ...any) {
	a.log(slog.LevelError, msg)
}

func (a *SlogToSplitAdapter) Warning(msg ...any) {
	a.log(slog.LevelWarn, msg)
}

func (a *SlogToSplitAdapter) Info(msg ...any) {
	a.log(slog.LevelInfo, msg)
}

func (a *SlogToSplitAdapter) Debug(msg ...any) {
	a.log(slog.LevelDebug, msg)
}

// Verbose logs at debug level; slog has no finer level.
func (a *SlogToSplitAdapter) Verbose(msg ...any) {
	a.log(slog.LevelDebug, msg)
}

func (a *SlogToSplitAdapter) log(level slog.Level, msg []any) {
	ctx := context.Background()
	// Skip formatting for disabled levels; the SDK logs verbosely.
	if !a.logger.Enabled(ctx, level) {
		return
	}
	switch len(msg) {
	case 0:
		a.logger.Log(ctx, level, "")
	case 1:
		a.logger.Log(ctx, level, fmt.Sprint(msg[0]))
	default:
		a.logger.Log(ctx, level, fmt.Sprint(msg[0]), "details", msg[1:])
	}
}
