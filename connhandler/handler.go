package connhandler

import (
	"errors"
	"time"

	"github.com/libp2p/go-libp2p-core/network"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/internal/clock"
	"github.com/libp2p/go-pubsub-core/service"
)

// DefaultMaxSubstreamAttempts bounds how many times ConnHandler will
// request a fresh outbound substream for the same connection before
// giving up and disabling it, when the caller doesn't override it
// (supplemented from handler.rs's retry-until-max-retries shape, made
// explicit per §5).
const DefaultMaxSubstreamAttempts = 5

// Command is an instruction from the behaviour to a single connection's
// handler.
type Command struct {
	SendFrame []byte
}

// EventKind distinguishes the terminal Disabled cause from a live event.
type EventKind int

const (
	FrameReceived EventKind = iota
	FrameSent
	NeedsOutboundSubstream
	Disabled
)

// Event is something the connection handler reports back to the
// behaviour about one peer connection.
type Event struct {
	Kind  EventKind
	Frame []byte
	// Reason is set when Kind == Disabled.
	Reason error
}

// ConnHandler owns the single long-lived inbound and outbound substream
// pair for one connection (§4.4), grounded on conn_handler/handler.rs. It
// is not itself a service.Service: its job is to bridge real
// network.Stream I/O into Downstream's cooperative state machine, so it
// drives goroutines directly rather than being polled.
type ConnHandler struct {
	peer core.PeerId
	conn network.Conn

	maxFrameSize      int
	idleTimeout       time.Duration
	maxSubstreamTries int
	clock             clock.Clock

	downstreamState *Downstream
	downstream      *service.Context[DownstreamIn, DownstreamOut]

	keepAlive         bool
	disabled          bool
	lastIOActivity    time.Time
	substreamAttempts int

	events chan Event
}

// NewConnHandler creates a handler for a single connection. maxSubstreamTries
// bounds outbound substream negotiation retries before the handler disables
// itself; pass DefaultMaxSubstreamAttempts for the teacher's default.
func NewConnHandler(peer core.PeerId, conn network.Conn, maxFrameSize int, idleTimeout time.Duration, maxSendRetries, maxSubstreamTries int) *ConnHandler {
	downstreamState := NewDownstream(maxSendRetries)
	return &ConnHandler{
		peer:              peer,
		conn:              conn,
		maxFrameSize:      maxFrameSize,
		idleTimeout:       idleTimeout,
		maxSubstreamTries: maxSubstreamTries,
		clock:             clock.Real{},
		downstreamState:   downstreamState,
		downstream:        service.NewContext[DownstreamIn, DownstreamOut](service.Wrap[DownstreamIn, DownstreamOut](downstreamState)),
		keepAlive:         true,
		lastIOActivity:    time.Now(),
		events:            make(chan Event, 16),
	}
}

// Events returns the channel the behaviour should drain for inbound
// frames, send acknowledgements, and the terminal Disabled event.
func (h *ConnHandler) Events() <-chan Event { return h.events }

// KeepAlive reports whether the connection should be kept open: while
// the downstream is actively sending, or within idleTimeout of the last
// I/O activity (§4.4).
func (h *ConnHandler) KeepAlive() bool {
	if h.disabled {
		return false
	}
	if h.downstreamState.IsSending() {
		return true
	}
	return h.keepAlive && h.clock.Now().Before(h.lastIOActivity.Add(h.idleTimeout))
}

// Send queues a frame for delivery on the outbound substream.
func (h *ConnHandler) Send(payload []byte) {
	if h.disabled {
		return
	}
	h.downstream.DoSend(DownstreamIn{Send: payload})
	h.drainDownstream()
}

// HandleInboundSubstream starts reading frames off a freshly negotiated
// inbound substream. One inbound substream is expected per connection
// (§4.2). Each call starts its own reader goroutine; a reader started for
// an earlier inbound substream is not stopped and keeps running until
// that stream closes.
func (h *ConnHandler) HandleInboundSubstream(stream network.Stream) {
	go readLoop(stream, h.maxFrameSize, func(frame []byte) {
		h.lastIOActivity = h.clock.Now()
		h.events <- Event{Kind: FrameReceived, Frame: frame}
	}, func(error) {
		_ = stream.Close()
	})
}

// HandleOutboundSubstream registers a freshly negotiated outbound
// substream with the downstream state machine.
func (h *ConnHandler) HandleOutboundSubstream(stream network.Stream) {
	h.substreamAttempts = 0
	h.downstream.DoSend(DownstreamIn{SubstreamReady: NewOutboundSubstream(stream, h.maxFrameSize)})
	h.drainDownstream()
}

// HandleUpgradeTimeout reports an outbound substream negotiation timeout.
func (h *ConnHandler) HandleUpgradeTimeout() {
	h.downstream.DoSend(DownstreamIn{SubstreamUpgradeFailed: ErrUpgradeErrorTimeout})
	h.drainDownstream()
}

// HandleUpgradeIOError reports an outbound substream negotiation I/O
// failure.
func (h *ConnHandler) HandleUpgradeIOError(err error) {
	h.downstream.DoSend(DownstreamIn{SubstreamUpgradeFailed: errors.Join(ErrUpgradeErrorIO, err)})
	h.drainDownstream()
}

// drainDownstream settles the downstream state machine and translates
// its output into handler-level events, disabling the handler once the
// maximum substream negotiation attempts or send retries is exceeded.
func (h *ConnHandler) drainDownstream() {
	for _, out := range service.DrainPoll(h.downstream) {
		switch {
		case out.SendAck:
			h.lastIOActivity = h.clock.Now()
			h.events <- Event{Kind: FrameSent}

		case out.RequestNewSubstream:
			h.substreamAttempts++
			if h.substreamAttempts > h.maxSubstreamTries {
				h.disable(errors.New("connhandler: maximum substream negotiation attempts reached"))
				return
			}
			h.events <- Event{Kind: NeedsOutboundSubstream}

		case out.Err != nil:
			h.disable(out.Err)
			return
		}
	}
}

func (h *ConnHandler) disable(reason error) {
	h.disabled = true
	h.keepAlive = false
	h.events <- Event{Kind: Disabled, Reason: reason}
}
