// Package heartbeat models a periodic tick source as a small pollable type
// rather than inlining a bare time.Ticker, mirroring the original
// implementation's Heartbeat stream (it additionally models an initial
// delay before the first tick, which this port keeps).
package heartbeat

import "time"

// Heartbeat emits a monotonically increasing tick count at a fixed
// interval, after an initial delay.
type Heartbeat struct {
	ticker *time.Timer
	period time.Duration
	ticks  uint64
	armed  bool
}

// New creates a Heartbeat that fires first after delay, then every
// interval.
func New(interval, delay time.Duration) *Heartbeat {
	return &Heartbeat{
		ticker: time.NewTimer(delay),
		period: interval,
		armed:  true,
	}
}

// Poll reports whether a tick has fired since the last call, returning the
// cumulative tick count wrapping on overflow like the original.
func (h *Heartbeat) Poll() (uint64, bool) {
	select {
	case <-h.ticker.C:
		h.ticks++
		h.ticker.Reset(h.period)
		return h.ticks, true
	default:
		return 0, false
	}
}

// Stop releases the underlying timer.
func (h *Heartbeat) Stop() {
	h.ticker.Stop()
}
