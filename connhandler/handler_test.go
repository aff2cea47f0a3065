package connhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/internal/clock"
)

func newTestHandler(maxSendRetries, maxSubstreamTries int) (*ConnHandler, *clock.Mock) {
	h := NewConnHandler(core.PeerId("peer"), nil, 65536, time.Minute, maxSendRetries, maxSubstreamTries)
	mc := clock.NewMock()
	h.clock = mc
	h.lastIOActivity = mc.Now()
	return h, mc
}

func TestKeepAliveWithinIdleWindow(t *testing.T) {
	h, mc := newTestHandler(2, 2)
	mc.Advance(30 * time.Second)
	require.True(t, h.KeepAlive())
}

func TestKeepAliveExpiresAfterIdleTimeout(t *testing.T) {
	h, mc := newTestHandler(2, 2)
	mc.Advance(2 * time.Minute)
	require.False(t, h.KeepAlive())
}

func TestKeepAliveTrueWhileSendingRegardlessOfIdleTimeout(t *testing.T) {
	h, mc := newTestHandler(2, 2)
	// IsSending() requires both a live substream and queued work; force that
	// state directly rather than through Send, since a synchronous flush
	// would drain the queue again before it could be observed.
	h.downstreamState.substream = &fakeSubstream{}
	h.downstreamState.sendQueue.PushBack([]byte("still queued"))

	mc.Advance(2 * time.Minute)
	require.True(t, h.KeepAlive(), "actively sending should keep the connection alive past the idle window")
}

func TestSendRequestsOutboundSubstreamEvent(t *testing.T) {
	h, _ := newTestHandler(2, 2)
	h.Send([]byte("hello"))

	select {
	case ev := <-h.Events():
		require.Equal(t, NeedsOutboundSubstream, ev.Kind)
	default:
		t.Fatalf("expected a NeedsOutboundSubstream event after Send with no substream")
	}
}

func TestExhaustingSubstreamAttemptsDisablesHandler(t *testing.T) {
	h, _ := newTestHandler(0, 1) // at most one substream negotiation attempt
	h.Send([]byte("hello"))
	require.False(t, h.disabled, "a single attempt should not exceed maxSubstreamTries yet")

	h.HandleUpgradeTimeout() // second attempt exceeds maxSubstreamTries
	require.True(t, h.disabled)
	require.False(t, h.KeepAlive())
}

func TestHandleUpgradeTimeoutRequestsAnotherSubstream(t *testing.T) {
	h, _ := newTestHandler(2, 2)
	h.Send([]byte("hello"))
	drainOneEvent(t, h) // the initial NeedsOutboundSubstream from Send

	h.HandleUpgradeTimeout()
	ev := drainOneEvent(t, h)
	require.Equal(t, NeedsOutboundSubstream, ev.Kind)
	require.False(t, h.disabled)
}

func TestHandleOutboundSubstreamResetsAttemptCounter(t *testing.T) {
	h, _ := newTestHandler(2, 5)
	h.substreamAttempts = 3

	// No frame is queued, so settling the downstream after this substream
	// arrives never touches it: passing nil here only exercises the
	// attempt-counter reset, not stream I/O.
	h.HandleOutboundSubstream(nil)
	require.Equal(t, 0, h.substreamAttempts, "a successful negotiation should reset the attempt counter")
}

func drainOneEvent(t *testing.T, h *ConnHandler) Event {
	t.Helper()
	select {
	case ev := <-h.Events():
		return ev
	default:
		t.Fatalf("expected an event on the handler's channel, got none")
		return Event{}
	}
}
