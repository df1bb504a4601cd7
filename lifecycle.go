package split

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	of "github.com/open-feature/go-sdk/openfeature"
)

// Init implements of.StateHandler. It delegates to Initialize without a
// deadline; the Split SDK's own ready timeout bounds the wait.
func (p *Provider) Init(evaluationContext of.EvaluationContext) error {
	return p.Initialize(context.Background(), &evaluationContext)
}

// InitWithContext implements of.ContextAwareStateHandler. ctx bounds the
// readiness wait in addition to the Split SDK's ready timeout.
func (p *Provider) InitWithContext(ctx context.Context, evaluationContext of.EvaluationContext) error {
	return p.Initialize(ctx, &evaluationContext)
}

// Initialize binds the provider to the targeting key of ec and blocks until
// the Split client for that key is ready, times out, or ctx is done.
//
// Validation failures are both returned and published as error events:
//   - empty API key: ErrMissingInitData, PROVIDER_FATAL
//   - absent context: ErrMissingInitContext, INVALID_CONTEXT
//   - empty targeting key: ErrMissingInitData, TARGETING_KEY_MISSING
//
// A key that already completed a handshake is rebound without waiting.
// After a timeout (ErrReadyTimeout) the key is not marked started, so a
// later call retries the handshake. Concurrent calls for the same key share
// one handshake and bind the context of the call that started it.
//
// The bound client and EvaluationContext change together, so after
// concurrent calls for different keys both name the key of the call that
// finished last.
func (p *Provider) Initialize(ctx context.Context, ec *of.EvaluationContext) error {
	if p.isShutdown() {
		return ErrProviderShutdown
	}

	if p.apiKey == "" {
		p.emitError(of.ProviderFatalCode, "Split API key is missing")
		return fmt.Errorf("%w: API key is empty", ErrMissingInitData)
	}
	if !contextPresent(ec) {
		p.emitError(of.InvalidContextCode, "evaluation context is missing")
		return ErrMissingInitContext
	}
	key := ec.TargetingKey()
	if key == "" {
		p.emitError(of.TargetingKeyMissingCode, "targeting key is missing")
		return fmt.Errorf("%w: targeting key is empty", ErrMissingInitData)
	}

	_, err, shared := p.initGroup.Do(key, func() (any, error) {
		return nil, p.startClient(ctx, ec)
	})
	if shared {
		p.logger.Debug("joined in-flight initialization", "targeting_key", key)
	}
	return err
}

// OnContextSet rebinds the provider when the evaluation context changes.
// Contexts with the same targeting key and attributes are a no-op;
// otherwise it initializes with next and publishes a context changed event.
func (p *Provider) OnContextSet(ctx context.Context, prev, next *of.EvaluationContext) error {
	if !contextChanged(prev, next) {
		p.logger.Debug("evaluation context unchanged, skipping reinitialization")
		return nil
	}
	if err := p.Initialize(ctx, next); err != nil {
		return err
	}
	p.emit(EventContextChanged, "evaluation context changed")
	p.logger.Debug("evaluation context changed", "targeting_key", next.TargetingKey())
	return nil
}

// startClient obtains the client for the targeting key of ec and runs the
// readiness handshake unless the key already completed one.
func (p *Provider) startClient(ctx context.Context, ec *of.EvaluationContext) error {
	key := ec.TargetingKey()
	c, err := p.clientFor(key)
	if err != nil {
		p.emitError(of.ProviderFatalCode, err.Error())
		return err
	}

	p.mtx.Lock()
	if p.isShutdown() {
		p.mtx.Unlock()
		return ErrProviderShutdown
	}
	if _, started := p.started[key]; started {
		p.bindLocked(c, ec)
		p.mtx.Unlock()
		p.logger.Debug("targeting key already started", "targeting_key", key)
		return nil
	}
	p.mtx.Unlock()

	p.wireUpdates(key, c)

	hs := newHandshake()
	c.On(SDKReady, func() {
		if !hs.resolve(readinessReady) && p.markFresh() {
			p.emit(EventReady, "Split definitions confirmed")
		}
	})
	c.On(SDKReadyFromCache, func() {
		hs.resolveWith(readinessReadyFromCache, func() {
			p.emit(EventStale, "Split is serving cached flag definitions")
		})
	})
	c.On(SDKReadyTimedOut, func() {
		hs.resolveWith(readinessTimedOut, func() {
			p.emitError(of.GeneralCode, timeoutMessage)
		})
	})

	p.logger.Debug("waiting for Split client to become ready", "targeting_key", key)
	outcome, err := hs.wait(ctx)
	if err != nil {
		p.emitError(of.GeneralCode, "initialization canceled: "+err.Error())
		return fmt.Errorf("initialization canceled: %w", err)
	}

	switch outcome {
	case readinessReady, readinessReadyFromCache:
		state := of.ReadyState
		if outcome == readinessReadyFromCache {
			state = of.StaleState
		}

		p.mtx.Lock()
		if p.isShutdown() {
			p.mtx.Unlock()
			return ErrProviderShutdown
		}
		p.started[key] = struct{}{}
		p.state = state
		p.bindLocked(c, ec)
		p.mtx.Unlock()

		// A cache resolution already published EventStale; EventReady follows
		// once Split confirms its definitions.
		if outcome == readinessReady {
			p.emit(EventReady, "Split provider ready")
		}
		p.logger.Info("Split provider ready", "targeting_key", key, "outcome", outcome)
		return nil
	default:
		p.setState(of.ErrorState)
		p.logger.Warn("Split client timed out waiting to become ready", "targeting_key", key)
		return fmt.Errorf("%w (targeting key %q)", ErrReadyTimeout, key)
	}
}

// bindLocked points evaluations at c and records ec as the bound context.
// p.mtx must be held.
func (p *Provider) bindLocked(c Client, ec *of.EvaluationContext) {
	p.evaluator.bind(c)
	p.evalContext = copyContext(ec)
}

// clientFor returns the client for key, building the factory on first use.
// The factory is built under the provider lock, so concurrent first calls
// build it once.
func (p *Provider) clientFor(key string) (Client, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.isShutdown() {
		return nil, ErrProviderShutdown
	}
	if p.factory == nil {
		factory, err := p.buildFactory(p.apiKey, key, p.splitConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: building Split factory: %w", ErrProviderFatal, err)
		}
		if factory == nil {
			return nil, fmt.Errorf("%w: Split factory is nil", ErrProviderFatal)
		}
		p.factory = factory
		p.logger.Debug("Split factory built", "targeting_key", key)
	}

	c, err := p.factory.Client(key)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining Split client: %w", ErrProviderFatal, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: Split client is nil for targeting key %q", ErrProviderFatal, key)
	}
	return c, nil
}

// wireUpdates forwards definition updates of c as configuration changed
// events, once per key.
func (p *Provider) wireUpdates(key string, c Client) {
	p.mtx.Lock()
	_, wired := p.updatesWired[key]
	p.updatesWired[key] = struct{}{}
	p.mtx.Unlock()
	if wired {
		return
	}

	c.On(SDKUpdated, func() {
		p.markFresh()
		p.emit(EventConfigurationChanged, "Split definitions updated")
	})
}

// Shutdown implements of.StateHandler. It waits up to the default shutdown
// timeout, or the configured ready timeout when that is longer.
func (p *Provider) Shutdown() {
	timeout := defaultShutdownTimeout
	if p.splitConfig != nil {
		if configTimeout := time.Duration(p.splitConfig.BlockUntilReady) * time.Second; configTimeout > timeout {
			timeout = configTimeout
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_ = p.ShutdownWithContext(ctx) //nolint:errcheck // Shutdown has no return value per OpenFeature interface
}

// ShutdownWithContext implements of.ContextAwareStateHandler.
//
// The provider is marked shut down immediately: later lifecycle calls fail
// with ErrProviderShutdown, evaluations report PROVIDER_NOT_READY and every
// event channel is closed. Destroying the Split factory is best effort
// within ctx; if ctx ends first, ctx.Err() is returned and the destroy
// finishes in the background.
func (p *Provider) ShutdownWithContext(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&p.shutdown, shutdownStateInactive, shutdownStateActive) {
		p.logger.Debug("provider already shut down")
		return nil
	}

	p.logger.Debug("shutting down Split provider")

	p.mtx.Lock()
	factory := p.factory
	p.factory = nil
	p.state = of.NotReadyState
	clear(p.started)
	p.evaluator.bind(nil)
	p.mtx.Unlock()

	p.events.close()

	if factory == nil {
		p.logger.Debug("provider was never initialized, nothing to destroy")
		return nil
	}

	destroyStart := time.Now()
	destroyDone := make(chan struct{})
	go func() {
		defer close(destroyDone)
		factory.Destroy()
	}()

	select {
	case <-destroyDone:
		p.logger.Debug("Split factory destroyed", "duration_ms", time.Since(destroyStart).Milliseconds())
		return nil
	case <-ctx.Done():
		err := ctx.Err()
		p.logger.Warn("context ended during Split factory destroy, finishing in background",
			"elapsed_ms", time.Since(destroyStart).Milliseconds(),
			"error", err)
		return err
	}
}
