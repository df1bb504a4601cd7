package split

import (
	"log/slog"
	"sync"
	"time"

	"github.com/splitio/go-client/v6/splitio/client"
	"github.com/splitio/go-client/v6/splitio/conf"
)

// sdkFactoryBuilder returns the FactoryBuilder backed by the Split Go SDK.
func sdkFactoryBuilder(logger *slog.Logger, monitoringInterval time.Duration) FactoryBuilder {
	return func(apiKey, _ string, cfg *conf.SplitSdkConfig) (Factory, error) {
		factory, err := client.NewSplitFactory(apiKey, cfg)
		if err != nil {
			return nil, err
		}
		readyTimeout := cfg.BlockUntilReady
		if readyTimeout <= 0 {
			readyTimeout = defaultSDKTimeout
		}
		return newSDKFactory(factory, logger, readyTimeout, monitoringInterval), nil
	}
}

// sdkFactory adapts a Split SDK factory to Factory.
//
// The server-side SDK has a single client that takes the key on every call
// and no event subscription API, so the adapter hands out key-bound views
// of that client and synthesizes readiness signals: BlockUntilReady success
// is SDKReady, failure is SDKReadyTimedOut, and polling split change
// numbers yields SDKUpdated. SDKReadyFromCache is never raised.
type sdkFactory struct {
	factory      *client.SplitFactory
	client       *client.SplitClient
	logger       *slog.Logger
	readyTimeout int
	interval     time.Duration

	mtx     sync.Mutex
	clients map[string]*sdkClient

	signals *sdkSignals

	stopMonitor chan struct{}
	monitorDone chan struct{}
	monitorOnce sync.Once
	destroyOnce sync.Once
}

func newSDKFactory(factory *client.SplitFactory, logger *slog.Logger, readyTimeout int, interval time.Duration) *sdkFactory {
	f := &sdkFactory{
		factory:      factory,
		client:       factory.Client(),
		logger:       logger,
		readyTimeout: readyTimeout,
		interval:     interval,
		clients:      make(map[string]*sdkClient),
		stopMonitor:  make(chan struct{}),
		monitorDone:  make(chan struct{}),
	}
	f.signals = &sdkSignals{blockUntilReady: f.blockUntilReady, readyHook: f.startMonitor}
	return f
}

func (f *sdkFactory) Client(key string) (Client, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if c, ok := f.clients[key]; ok {
		return c, nil
	}
	c := &sdkClient{key: key, sdk: f}
	f.clients[key] = c
	return c, nil
}

// FlagNames lists the flags currently loaded by the SDK.
func (f *sdkFactory) FlagNames() []string {
	manager := f.factory.Manager()
	if manager == nil {
		return nil
	}
	return manager.SplitNames()
}

func (f *sdkFactory) Destroy() {
	f.destroyOnce.Do(func() {
		close(f.stopMonitor)
		// Claim the monitor so it cannot start after the stop signal.
		started := true
		f.monitorOnce.Do(func() { started = false })
		if started {
			<-f.monitorDone
		}
		f.client.Destroy()
		f.logger.Debug("Split SDK client destroyed")
	})
}

func (f *sdkFactory) blockUntilReady() error {
	return f.client.BlockUntilReady(f.readyTimeout)
}

func (f *sdkFactory) startMonitor() {
	f.monitorOnce.Do(func() {
		go f.monitorSplitUpdates()
	})
}

// monitorSplitUpdates polls split change numbers and raises SDKUpdated
// whenever a split is added, removed or modified.
func (f *sdkFactory) monitorSplitUpdates() {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("split monitor panicked, stopping", "panic", r)
		}
		close(f.monitorDone)
		f.logger.Debug("split monitor stopped")
	}()

	manager := f.factory.Manager()
	if manager == nil {
		f.logger.Warn("Split manager unavailable, updates will not be reported")
		return
	}

	snapshot := func() map[string]int64 {
		splits := manager.Splits()
		changes := make(map[string]int64, len(splits))
		for i := range splits {
			changes[splits[i].Name] = splits[i].ChangeNumber
		}
		return changes
	}

	known := snapshot()
	f.logger.Debug("starting split monitor", "interval", f.interval, "splits", len(known))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopMonitor:
			return
		case <-ticker.C:
			current := snapshot()
			if !splitsChanged(known, current) {
				continue
			}
			f.logger.Debug("split definitions changed", "old_count", len(known), "new_count", len(current))
			known = current
			f.signals.updated()
		}
	}
}

// splitsChanged reports whether any split was added, removed or modified.
func splitsChanged(old, current map[string]int64) bool {
	if len(old) != len(current) {
		return true
	}
	for name, changeNumber := range current {
		if previous, ok := old[name]; !ok || previous != changeNumber {
			return true
		}
	}
	return false
}

// sdkSignals dispatches synthesized SDK signals to subscribed callbacks.
// Readiness callbacks fire at most once and are dropped after the watch
// they were registered for ends; updated callbacks persist.
type sdkSignals struct {
	blockUntilReady func() error
	readyHook       func()

	mtx              sync.Mutex
	ready            bool
	watching         bool
	readyCallbacks   []func()
	timeoutCallbacks []func()
	updateCallbacks  []func()
}

func (s *sdkSignals) on(event SDKEvent, callback func()) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	switch event {
	case SDKReady:
		if s.ready {
			go callback()
			return
		}
		s.readyCallbacks = append(s.readyCallbacks, callback)
		s.watchLocked()
	case SDKReadyTimedOut:
		if s.ready {
			return
		}
		s.timeoutCallbacks = append(s.timeoutCallbacks, callback)
		s.watchLocked()
	case SDKUpdated:
		s.updateCallbacks = append(s.updateCallbacks, callback)
	case SDKReadyFromCache:
		// The server-side SDK has no persistent cache to start from.
	}
}

// watchLocked starts a readiness watch unless one is running. A watch that
// ended in a timeout is restarted by the next subscription.
func (s *sdkSignals) watchLocked() {
	if s.watching {
		return
	}
	s.watching = true
	go s.watch()
}

func (s *sdkSignals) watch() {
	err := s.blockUntilReady()

	s.mtx.Lock()
	s.watching = false
	var fire []func()
	if err == nil {
		s.ready = true
		fire = s.readyCallbacks
	} else {
		fire = s.timeoutCallbacks
	}
	s.readyCallbacks, s.timeoutCallbacks = nil, nil
	s.mtx.Unlock()

	if err == nil && s.readyHook != nil {
		s.readyHook()
	}
	for _, callback := range fire {
		callback()
	}
}

func (s *sdkSignals) updated() {
	s.mtx.Lock()
	callbacks := append([]func(){}, s.updateCallbacks...)
	s.mtx.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

// sdkClient is the shared SDK client bound to one key.
type sdkClient struct {
	key string
	sdk *sdkFactory
}

func (c *sdkClient) Treatment(flag string, attributes map[string]any) string {
	return c.sdk.client.Treatment(c.key, flag, attributes)
}

func (c *sdkClient) TreatmentWithConfig(flag string, attributes map[string]any) client.TreatmentResult {
	return c.sdk.client.TreatmentWithConfig(c.key, flag, attributes)
}

func (c *sdkClient) On(event SDKEvent, callback func()) {
	c.sdk.signals.on(event, callback)
}

func (c *sdkClient) Track(trafficType, eventType string, value any, properties map[string]any) error {
	return c.sdk.client.Track(c.key, trafficType, eventType, value, properties)
}
