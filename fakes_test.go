package split

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	of "github.com/open-feature/go-sdk/openfeature"
	"github.com/splitio/go-client/v6/splitio/client"
	"github.com/splitio/go-client/v6/splitio/conf"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory Split client. Readiness callbacks fire once
// and are dropped; updated callbacks persist. Events listed in autoFire are
// raised as soon as a callback subscribes to them.
type fakeClient struct {
	mtx            sync.Mutex
	treatments     map[string]client.TreatmentResult
	lastAttributes map[string]any
	handlers       map[SDKEvent][]func()
	subscriptions  map[SDKEvent]int
	autoFire       map[SDKEvent]bool
	tracked        []trackedEvent
	trackErr       error
}

type trackedEvent struct {
	trafficType string
	eventType   string
	value       any
	properties  map[string]any
}

func newFakeClient(autoFire ...SDKEvent) *fakeClient {
	c := &fakeClient{
		treatments:    make(map[string]client.TreatmentResult),
		handlers:      make(map[SDKEvent][]func()),
		subscriptions: make(map[SDKEvent]int),
		autoFire:      make(map[SDKEvent]bool),
	}
	for _, event := range autoFire {
		c.autoFire[event] = true
	}
	return c
}

func (c *fakeClient) withTreatment(flag, treatment string, config *string) *fakeClient {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.treatments[flag] = client.TreatmentResult{Treatment: treatment, Config: config}
	return c
}

func (c *fakeClient) setAutoFire(events ...SDKEvent) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.autoFire = make(map[SDKEvent]bool)
	for _, event := range events {
		c.autoFire[event] = true
	}
}

func (c *fakeClient) Treatment(flag string, attributes map[string]any) string {
	return c.TreatmentWithConfig(flag, attributes).Treatment
}

func (c *fakeClient) TreatmentWithConfig(flag string, attributes map[string]any) client.TreatmentResult {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.lastAttributes = attributes
	if result, ok := c.treatments[flag]; ok {
		return result
	}
	return client.TreatmentResult{Treatment: controlTreatment}
}

func (c *fakeClient) On(event SDKEvent, callback func()) {
	c.mtx.Lock()
	c.subscriptions[event]++
	if c.autoFire[event] {
		c.mtx.Unlock()
		callback()
		return
	}
	c.handlers[event] = append(c.handlers[event], callback)
	c.mtx.Unlock()
}

func (c *fakeClient) Track(trafficType, eventType string, value any, properties map[string]any) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.trackErr != nil {
		return c.trackErr
	}
	c.tracked = append(c.tracked, trackedEvent{trafficType, eventType, value, properties})
	return nil
}

// fire raises event on every subscribed callback.
func (c *fakeClient) fire(event SDKEvent) {
	c.mtx.Lock()
	callbacks := c.handlers[event]
	if event != SDKUpdated {
		delete(c.handlers, event)
	}
	c.mtx.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}

func (c *fakeClient) subscribed(event SDKEvent) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.subscriptions[event]
}

func (c *fakeClient) attributes() map[string]any {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.lastAttributes
}

// untrackedClient is a Client that cannot track events.
type untrackedClient struct {
	fake *fakeClient
}

func (u untrackedClient) Treatment(flag string, attributes map[string]any) string {
	return u.fake.Treatment(flag, attributes)
}

func (u untrackedClient) TreatmentWithConfig(flag string, attributes map[string]any) client.TreatmentResult {
	return u.fake.TreatmentWithConfig(flag, attributes)
}

func (u untrackedClient) On(event SDKEvent, callback func()) {
	u.fake.On(event, callback)
}

// fakeFactory hands out one fakeClient per key, created on demand.
type fakeFactory struct {
	mtx       sync.Mutex
	clients   map[string]Client
	newClient func(key string) Client
	clientErr error
	nilClient bool
	flags     []string
	destroyed atomic.Int32
}

func newFakeFactory(newClient func(key string) Client) *fakeFactory {
	return &fakeFactory{clients: make(map[string]Client), newClient: newClient}
}

func readyFactory() *fakeFactory {
	return newFakeFactory(func(string) Client { return newFakeClient(SDKReady) })
}

func (f *fakeFactory) Client(key string) (Client, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.clientErr != nil {
		return nil, f.clientErr
	}
	if f.nilClient {
		return nil, nil
	}
	c, ok := f.clients[key]
	if !ok {
		c = f.newClient(key)
		f.clients[key] = c
	}
	return c, nil
}

func (f *fakeFactory) Destroy() {
	f.destroyed.Add(1)
}

func (f *fakeFactory) FlagNames() []string {
	return f.flags
}

func (f *fakeFactory) client(t *testing.T, key string) *fakeClient {
	t.Helper()
	c, err := f.Client(key)
	require.NoError(t, err)
	switch fc := c.(type) {
	case *fakeClient:
		return fc
	case untrackedClient:
		return fc.fake
	}
	t.Fatalf("unexpected client type %T", c)
	return nil
}

// countingBuilder returns a FactoryBuilder serving factory and counting builds.
func countingBuilder(factory Factory, builds *atomic.Int32) FactoryBuilder {
	return func(_, _ string, _ *conf.SplitSdkConfig) (Factory, error) {
		builds.Add(1)
		return factory, nil
	}
}

func failingBuilder(err error) FactoryBuilder {
	return func(_, _ string, _ *conf.SplitSdkConfig) (Factory, error) {
		return nil, err
	}
}

var errBuild = errors.New("build failed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, factory Factory, opts ...Option) *Provider {
	t.Helper()
	var builds atomic.Int32
	opts = append([]Option{WithLogger(discardLogger()), WithFactoryBuilder(countingBuilder(factory, &builds))}, opts...)
	p, err := New("test-api-key", opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.ShutdownWithContext(ctx)
	})
	return p
}

func evalContext(key string, attributes map[string]any) *of.EvaluationContext {
	ec := of.NewEvaluationContext(key, attributes)
	return &ec
}

// drain returns every event already buffered on events.
func drain(events <-chan ProviderEvent) []ProviderEvent {
	var received []ProviderEvent
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return received
			}
			received = append(received, event)
		default:
			return received
		}
	}
}

func kinds(events []ProviderEvent) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, event := range events {
		out = append(out, event.Kind)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
