package split

import "time"

const (
	// providerName is reported through Metadata and on every emitted event.
	providerName = "Split"

	// SDK Timeouts

	// defaultSDKTimeout is the BlockUntilReady budget in seconds used by the
	// Split SDK binding when the configuration does not set one.
	defaultSDKTimeout = 10

	// defaultShutdownTimeout bounds Shutdown when no context is supplied.
	defaultShutdownTimeout = 30 * time.Second

	// Event Handling

	// eventChannelBuffer is the buffer size of the OpenFeature event channel
	// and of every observer channel. Overflow events are dropped and logged.
	eventChannelBuffer = 128

	// Monitoring

	// defaultMonitoringInterval is how often the Split SDK binding polls
	// split change numbers to synthesize the updated signal.
	defaultMonitoringInterval = 30 * time.Second

	// minMonitoringInterval is the smallest interval WithMonitoringInterval accepts.
	minMonitoringInterval = 5 * time.Second

	// Atomic States

	shutdownStateActive   = 1
	shutdownStateInactive = 0

	// Split SDK Constants

	// controlTreatment is returned by Split when a flag does not exist, is
	// killed for the key, or the client cannot evaluate. Compared case-insensitively.
	controlTreatment = "control"

	// configMetadataKey is the FlagMetadata entry carrying the raw treatment config.
	configMetadataKey = "config"

	// timeoutMessage is the message of the error event emitted on SDK timeout.
	timeoutMessage = "Split provider timed out"

	// OpenFeature Context Keys

	// TrafficTypeKey is the evaluation context attribute read by Track to
	// categorize events. It is not used for flag evaluations.
	TrafficTypeKey = "trafficType"

	// DefaultTrafficType is used by Track when the context has no traffic type.
	DefaultTrafficType = "user"
)
