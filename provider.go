package split

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	of "github.com/open-feature/go-sdk/openfeature"
	"github.com/splitio/go-client/v6/splitio/client"
	"github.com/splitio/go-client/v6/splitio/conf"
	"golang.org/x/sync/singleflight"
)

// Provider is an OpenFeature provider backed by a key-scoped Split client.
//
// The provider follows the client-side model: Initialize binds it to the
// targeting key of an evaluation context, and evaluations run against the
// client obtained for that key. OnContextSet rebinds it when the context
// changes.
type Provider struct {
	apiKey             string
	splitConfig        *conf.SplitSdkConfig
	logger             *slog.Logger
	monitoringInterval time.Duration
	buildFactory       FactoryBuilder
	objectParser       ObjectParser

	evaluator *Evaluator
	events    *eventBus
	initGroup singleflight.Group

	mtx          sync.RWMutex
	factory      Factory
	started      map[string]struct{}
	updatesWired map[string]struct{}
	evalContext  *of.EvaluationContext
	state        of.State
	shutdown     uint32
}

var (
	_ of.FeatureProvider          = (*Provider)(nil)
	_ of.StateHandler             = (*Provider)(nil)
	_ of.ContextAwareStateHandler = (*Provider)(nil)
	_ of.EventHandler             = (*Provider)(nil)
	_ of.Tracker                  = (*Provider)(nil)
)

// New creates a Split provider for apiKey. Nothing is contacted until
// Initialize; an empty apiKey is reported there.
//
// Use "localhost" as apiKey together with a SplitFile in the configuration
// to evaluate flags from a local YAML file.
func New(apiKey string, opts ...Option) (*Provider, error) {
	p := &Provider{
		apiKey:             apiKey,
		monitoringInterval: defaultMonitoringInterval,
		objectParser:       ParseJSONObject,
		evaluator:          NewEvaluator(nil),
		started:            make(map[string]struct{}),
		updatesWired:       make(map[string]struct{}),
		state:              of.NotReadyState,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "split-provider")

	if p.monitoringInterval < minMonitoringInterval {
		return nil, fmt.Errorf("monitoring interval %s is below the minimum of %s", p.monitoringInterval, minMonitoringInterval)
	}
	if p.splitConfig == nil {
		p.splitConfig = conf.Default()
	}
	if p.splitConfig.Logger == nil {
		p.splitConfig.Logger = NewSplitLogger(p.logger.With("source", "split-sdk"))
	}
	if p.buildFactory == nil {
		p.buildFactory = sdkFactoryBuilder(p.logger, p.monitoringInterval)
	}
	if p.objectParser == nil {
		p.objectParser = ParseJSONObject
	}
	p.events = newEventBus(p.logger)

	p.logger.Debug("Split provider created",
		"block_until_ready", p.splitConfig.BlockUntilReady,
		"monitoring_interval", p.monitoringInterval)
	return p, nil
}

// Metadata returns the provider metadata.
func (p *Provider) Metadata() of.Metadata {
	return of.Metadata{Name: providerName}
}

// Hooks returns no hooks.
func (p *Provider) Hooks() []of.Hook {
	return nil
}

// Status returns the current provider state. A shut down provider is
// always NotReady.
func (p *Provider) Status() of.State {
	if p.isShutdown() {
		return of.NotReadyState
	}
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.state
}

// Evaluator returns the evaluator bound by the lifecycle. It is usable
// directly for typed evaluations that bypass the OpenFeature client.
func (p *Provider) Evaluator() *Evaluator {
	return p.evaluator
}

// EvaluationContext returns a copy of the context the provider was last
// initialized with, or nil.
func (p *Provider) EvaluationContext() *of.EvaluationContext {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return copyContext(p.evalContext)
}

// Factory returns the vendor factory, or nil before the first Initialize and
// after Shutdown.
//
// The provider owns the factory lifecycle: do not Destroy it.
func (p *Provider) Factory() Factory {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.factory
}

// SplitFactory returns the underlying Split SDK factory when the provider
// runs on the default binding, for features OpenFeature does not expose
// (manager queries, bulk treatments). It returns nil otherwise.
func (p *Provider) SplitFactory() *client.SplitFactory {
	if f, ok := p.Factory().(*sdkFactory); ok {
		return f.factory
	}
	return nil
}

// Metrics returns a diagnostic snapshot of the provider:
//   - provider: provider name
//   - status: current of.State
//   - ready: whether evaluations are served
//   - started_keys: number of targeting keys with a completed handshake
//   - targeting_key: key of the current evaluation context ("" if none)
//   - flags_count: number of loaded flags, when the factory can list them
func (p *Provider) Metrics() map[string]any {
	status := p.Status()

	p.mtx.RLock()
	factory := p.factory
	startedKeys := len(p.started)
	targetingKey := ""
	if p.evalContext != nil {
		targetingKey = p.evalContext.TargetingKey()
	}
	p.mtx.RUnlock()

	metrics := map[string]any{
		"provider":      providerName,
		"status":        string(status),
		"ready":         status == of.ReadyState || status == of.StaleState,
		"started_keys":  startedKeys,
		"targeting_key": targetingKey,
	}

	// Listing flags may be slow, so it runs without the lock.
	if lister, ok := factory.(flagLister); ok && status != of.NotReadyState {
		metrics["flags_count"] = len(lister.FlagNames())
	}
	return metrics
}

func (p *Provider) isShutdown() bool {
	return atomic.LoadUint32(&p.shutdown) == shutdownStateActive
}

func (p *Provider) setState(state of.State) {
	p.mtx.Lock()
	p.state = state
	p.mtx.Unlock()
}

// markFresh leaves the stale state once Split confirms its definitions. It
// reports whether the state changed.
func (p *Provider) markFresh() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.state != of.StaleState {
		return false
	}
	p.state = of.ReadyState
	return true
}
