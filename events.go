package split

import (
	"log/slog"
	"sync"

	of "github.com/open-feature/go-sdk/openfeature"
)

// EventKind is the closed set of provider lifecycle signals.
type EventKind int

const (
	EventReady EventKind = iota
	EventStale
	EventConfigurationChanged
	EventContextChanged
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "READY"
	case EventStale:
		return "STALE"
	case EventConfigurationChanged:
		return "CONFIGURATION_CHANGED"
	case EventContextChanged:
		return "CONTEXT_CHANGED"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ProviderEvent is a lifecycle signal published by the provider.
// ErrorCode is set only for EventError.
type ProviderEvent struct {
	Kind      EventKind
	ErrorCode of.ErrorCode
	Message   string
}

// openFeatureEvent maps e onto the OpenFeature event model. The Go SDK has
// no context-changed event type, so it is reported as a configuration
// change flagged in the event metadata.
func (e ProviderEvent) openFeatureEvent() of.Event {
	event := of.Event{
		ProviderName: providerName,
		ProviderEventDetails: of.ProviderEventDetails{
			Message: e.Message,
		},
	}
	switch e.Kind {
	case EventReady:
		event.EventType = of.ProviderReady
	case EventStale:
		event.EventType = of.ProviderStale
	case EventConfigurationChanged:
		event.EventType = of.ProviderConfigChange
	case EventContextChanged:
		event.EventType = of.ProviderConfigChange
		event.EventMetadata = map[string]any{"contextChanged": true}
	case EventError:
		event.EventType = of.ProviderError
		event.ErrorCode = e.ErrorCode
		event.EventMetadata = map[string]any{"errorCode": string(e.ErrorCode)}
	}
	return event
}

// eventBus fans provider events out to observers and to the OpenFeature
// event channel. Delivery is fire-and-forget: observers registered at
// publish time receive the event, late observers get no replay, and a full
// observer buffer drops the event with a warning.
type eventBus struct {
	logger *slog.Logger

	mtx       sync.RWMutex
	closed    bool
	nextID    int
	observers map[int]chan ProviderEvent
	sdkStream chan of.Event
}

func newEventBus(logger *slog.Logger) *eventBus {
	return &eventBus{
		logger:    logger,
		observers: make(map[int]chan ProviderEvent),
		sdkStream: make(chan of.Event, eventChannelBuffer),
	}
}

// subscribe registers an observer. The returned cancel func unregisters it
// and closes its channel; it is safe to call more than once.
func (b *eventBus) subscribe() (<-chan ProviderEvent, func()) {
	ch := make(chan ProviderEvent, eventChannelBuffer)

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.observers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mtx.Lock()
			defer b.mtx.Unlock()
			if observer, ok := b.observers[id]; ok {
				delete(b.observers, id)
				close(observer)
			}
		})
	}
}

func (b *eventBus) publish(event ProviderEvent) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	if b.closed {
		return
	}

	b.logger.Debug("publishing provider event", "kind", event.Kind, "error_code", event.ErrorCode, "message", event.Message)

	for id, observer := range b.observers {
		select {
		case observer <- event:
		default:
			b.logger.Warn("observer channel full, dropping event", "observer", id, "kind", event.Kind)
		}
	}

	select {
	case b.sdkStream <- event.openFeatureEvent():
	default:
		b.logger.Warn("event channel full, dropping event", "kind", event.Kind)
	}
}

// close closes every channel. Publishing afterwards is a no-op.
func (b *eventBus) close() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, observer := range b.observers {
		close(observer)
		delete(b.observers, id)
	}
	close(b.sdkStream)
}

// Observe registers an observer of provider events. Events published after
// the call are delivered in emission order; earlier events are not replayed.
// Call cancel to stop observing. The channel is closed on cancel or Shutdown.
func (p *Provider) Observe() (events <-chan ProviderEvent, cancel func()) {
	return p.events.subscribe()
}

// EventChannel implements of.EventHandler.
//
// Events Emitted:
//   - PROVIDER_READY: a readiness handshake completed
//   - PROVIDER_STALE: Split is serving cached definitions
//   - PROVIDER_CONFIGURATION_CHANGED: flag definitions changed, or the
//     evaluation context changed (EventMetadata["contextChanged"] is true)
//   - PROVIDER_ERROR: initialization failed or the SDK timed out; ErrorCode
//     carries the OpenFeature error code, mirrored in EventMetadata["errorCode"]
//
// The channel is buffered and closed by Shutdown.
func (p *Provider) EventChannel() <-chan of.Event {
	return p.events.sdkStream
}

func (p *Provider) emit(kind EventKind, message string) {
	p.events.publish(ProviderEvent{Kind: kind, Message: message})
}

func (p *Provider) emitError(code of.ErrorCode, message string) {
	p.events.publish(ProviderEvent{Kind: EventError, ErrorCode: code, Message: message})
}
