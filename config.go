package split

import (
	"log/slog"
	"time"

	"github.com/splitio/go-client/v6/splitio/conf"
)

// Option configures a Provider.
type Option func(*Provider)

// WithSplitConfig sets the Split SDK configuration. When cfg.Logger is nil
// the provider logger is installed through SlogToSplitAdapter.
func WithSplitConfig(cfg *conf.SplitSdkConfig) Option {
	return func(p *Provider) {
		p.splitConfig = cfg
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithMonitoringInterval sets how often the Split SDK binding polls for
// definition changes. New rejects intervals below 5 seconds.
func WithMonitoringInterval(interval time.Duration) Option {
	return func(p *Provider) {
		p.monitoringInterval = interval
	}
}

// WithFactoryBuilder replaces the Split SDK binding, for instance with a
// client that raises native readiness events.
func WithFactoryBuilder(builder FactoryBuilder) Option {
	return func(p *Provider) {
		p.buildFactory = builder
	}
}

// WithObjectParser replaces ParseJSONObject for ObjectEvaluation.
func WithObjectParser(parser ObjectParser) Option {
	return func(p *Provider) {
		p.objectParser = parser
	}
}

// TestConfig returns a Split SDK configuration tuned for tests and local
// examples: short ready and HTTP timeouts, small queues and the shortest
// sync periods the SDK accepts.
//
//	cfg := split.TestConfig()
//	cfg.SplitFile = "./split.yaml"
//	provider, err := split.New("localhost", split.WithSplitConfig(cfg))
func TestConfig() *conf.SplitSdkConfig {
	cfg := conf.Default()

	cfg.BlockUntilReady = 5
	cfg.Advanced.HTTPTimeout = 5

	// Debug mode sends every impression instead of deduplicated batches.
	cfg.ImpressionsMode = "debug"

	cfg.Advanced.EventsQueueSize = 100
	cfg.Advanced.ImpressionsQueueSize = 100
	cfg.Advanced.EventsBulkSize = 100
	cfg.Advanced.ImpressionsBulkSize = 100

	// SDK minimums
	cfg.TaskPeriods.SplitSync = 5
	cfg.TaskPeriods.SegmentSync = 30
	cfg.TaskPeriods.ImpressionSync = 60
	cfg.TaskPeriods.EventsSync = 1
	cfg.TaskPeriods.TelemetrySync = 60

	return cfg
}
