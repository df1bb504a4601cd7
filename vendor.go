package split

import (
	"github.com/splitio/go-client/v6/splitio/client"
	"github.com/splitio/go-client/v6/splitio/conf"
)

// SDKEvent is a lifecycle signal raised by a Split client.
type SDKEvent int

const (
	// SDKReady fires once the client has loaded flag definitions.
	SDKReady SDKEvent = iota
	// SDKReadyFromCache fires when the client can serve cached definitions
	// that may be stale.
	SDKReadyFromCache
	// SDKUpdated fires every time flag definitions change.
	SDKUpdated
	// SDKReadyTimedOut fires when the client gave up waiting to become ready.
	SDKReadyTimedOut
)

func (e SDKEvent) String() string {
	switch e {
	case SDKReady:
		return "SDK_READY"
	case SDKReadyFromCache:
		return "SDK_READY_FROM_CACHE"
	case SDKUpdated:
		return "SDK_UPDATED"
	case SDKReadyTimedOut:
		return "SDK_READY_TIMED_OUT"
	default:
		return "SDK_UNKNOWN"
	}
}

// Client is the Split client surface the provider depends on. A Client is
// scoped to the key it was obtained for.
//
// Callbacks registered with On are invoked from the client's goroutines and
// must not block. Readiness callbacks (SDKReady, SDKReadyFromCache,
// SDKReadyTimedOut) fire at most once per registration; SDKUpdated callbacks
// fire on every update.
type Client interface {
	Treatment(flag string, attributes map[string]any) string
	TreatmentWithConfig(flag string, attributes map[string]any) client.TreatmentResult
	On(event SDKEvent, callback func())
}

// Tracker is implemented by clients able to record Split events.
type Tracker interface {
	Track(trafficType, eventType string, value any, properties map[string]any) error
}

// Factory hands out key-scoped clients. Implementations may return a new
// client per key or the same shared client for every key.
type Factory interface {
	Client(key string) (Client, error)
	Destroy()
}

// flagLister is optionally implemented by factories that can enumerate the
// flags they have loaded.
type flagLister interface {
	FlagNames() []string
}

// FactoryBuilder builds the Split factory for an API key. key is the first
// targeting key the provider is initialized with.
type FactoryBuilder func(apiKey, key string, cfg *conf.SplitSdkConfig) (Factory, error)
