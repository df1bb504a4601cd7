package split

import (
	"context"
	"fmt"

	of "github.com/open-feature/go-sdk/openfeature"
)

// Track implements of.Tracker by recording a Split event for the bound
// targeting key. The traffic type comes from the "trafficType" attribute of
// ec and defaults to "user"; details attributes become event properties
// after the same projection applied to evaluation attributes.
//
// of.Tracker has no error return, so failures are logged.
func (p *Provider) Track(ctx context.Context, eventName string, ec of.EvaluationContext, details of.TrackingEventDetails) {
	if err := p.track(ctx, eventName, ec, details); err != nil {
		p.logger.Warn("failed to track event", "event", eventName, "error", err)
	}
}

func (p *Provider) track(ctx context.Context, eventName string, ec of.EvaluationContext, details of.TrackingEventDetails) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isShutdown() {
		return ErrProviderShutdown
	}

	c := p.evaluator.bound()
	if c == nil {
		return ErrClientNotFound
	}
	tracker, ok := c.(Tracker)
	if !ok {
		return fmt.Errorf("%w: bound Split client cannot track events", ErrNotImplemented)
	}

	trafficType := DefaultTrafficType
	if tt, ok := ec.Attributes()[TrafficTypeKey].(string); ok && tt != "" {
		trafficType = tt
	}

	properties := mapAttributes(details.Attributes())
	if err := tracker.Track(trafficType, eventName, details.Value(), properties); err != nil {
		return fmt.Errorf("tracking %q: %w", eventName, err)
	}
	p.logger.Debug("event tracked", "event", eventName, "traffic_type", trafficType, "value", details.Value())
	return nil
}
