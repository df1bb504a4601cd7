package split

import (
	"context"
	"sync/atomic"
)

// readiness is the state of one readiness handshake.
type readiness int32

const (
	readinessIdle readiness = iota
	readinessAwaiting
	readinessReady
	readinessReadyFromCache
	readinessTimedOut
)

func (r readiness) String() string {
	switch r {
	case readinessIdle:
		return "idle"
	case readinessAwaiting:
		return "awaiting_ready"
	case readinessReady:
		return "ready"
	case readinessReadyFromCache:
		return "ready_from_cache"
	case readinessTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// handshake is a one-shot future resolved by the first readiness signal.
// Later signals lose the compare-and-swap and are ignored.
type handshake struct {
	state atomic.Int32
	done  chan struct{}
}

func newHandshake() *handshake {
	h := &handshake{done: make(chan struct{})}
	h.state.Store(int32(readinessAwaiting))
	return h
}

// resolve moves the handshake from awaiting to outcome. It reports whether
// this call won the resolution.
func (h *handshake) resolve(outcome readiness) bool {
	return h.resolveWith(outcome, nil)
}

// resolveWith is resolve with a hook run by the winner before waiters are
// released, so anything it publishes is observed before wait returns.
func (h *handshake) resolveWith(outcome readiness, before func()) bool {
	if !h.state.CompareAndSwap(int32(readinessAwaiting), int32(outcome)) {
		return false
	}
	if before != nil {
		before()
	}
	close(h.done)
	return true
}

// wait blocks until the handshake resolves or ctx is done.
func (h *handshake) wait(ctx context.Context) (readiness, error) {
	select {
	case <-h.done:
		return h.current(), nil
	case <-ctx.Done():
		// Prefer a resolution that raced with cancellation.
		select {
		case <-h.done:
			return h.current(), nil
		default:
			return h.current(), ctx.Err()
		}
	}
}

func (h *handshake) current() readiness {
	return readiness(h.state.Load())
}
