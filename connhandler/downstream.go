package connhandler

import (
	"container/list"
	"context"
	"errors"

	"github.com/libp2p/go-pubsub-core/service"
)

// ErrMaxSendRetriesReached is returned once the outbound substream has
// failed to flush a frame more than the configured number of times in a
// row (§4.3/§4.4, mirroring MaxRetriesReached).
var ErrMaxSendRetriesReached = errors.New("connhandler: maximum send retries reached")

// ErrUpgradeErrorTimeout and ErrUpgradeErrorIO are the two causes a
// substream upgrade can fail for. The Downstream state machine treats
// them identically (drop the pending substream, ask for a new one) and
// ignores the cause; ConnHandler only reports them as distinct error
// values and does not log them (§5 supplemented
// UpgradeErrorTimeout/UpgradeErrorIO split, mirroring handler.rs's
// StreamUpgradeError::Timeout vs StreamUpgradeError::Io).
var (
	ErrUpgradeErrorTimeout = errors.New("connhandler: outbound substream upgrade timed out")
	ErrUpgradeErrorIO      = errors.New("connhandler: outbound substream upgrade failed: io error")
)

// DownstreamIn is the input event for the send-side substream state
// machine.
type DownstreamIn struct {
	// Send queues bytes (a single already-encoded frame) for delivery on
	// the outbound substream.
	Send []byte

	// SubstreamReady reports that a new outbound substream finished
	// negotiating and is ready to write to.
	SubstreamReady *Substream

	// SubstreamUpgradeFailed reports that the outbound substream upgrade
	// failed, with the underlying cause.
	SubstreamUpgradeFailed error
}

// DownstreamOut is the output event for the send-side substream state
// machine.
type DownstreamOut struct {
	// SendAck reports one queued frame was written successfully.
	SendAck bool

	// RequestNewSubstream asks the connection handler to negotiate a new
	// outbound substream.
	RequestNewSubstream bool

	// Err carries a terminal failure (ErrMaxSendRetriesReached; a failed
	// substream upgrade never sets it); the caller should stop keeping the
	// connection alive once this fires.
	Err error
}

// Substream is the minimal surface Downstream needs from a negotiated
// outbound substream: write one frame and report whether writing failed.
type Substream interface {
	WriteFrame(ctx context.Context, payload []byte) error
	Close() error
}

// Downstream is the outbound substream send state machine (§4.3),
// grounded on conn_handler/downstream.rs: it queues frames, requests a
// substream when none is open, and retries on write failure up to
// maxSendRetries before giving up.
type Downstream struct {
	maxSendRetries int

	substream          Substream
	substreamRequested bool
	sendQueue          *list.List
	sendRetries        int
	sending            bool
}

// NewDownstream creates a Downstream bounded by maxSendRetries.
func NewDownstream(maxSendRetries int) *Downstream {
	return &Downstream{
		maxSendRetries: maxSendRetries,
		sendQueue:      list.New(),
	}
}

// IsSending reports whether the downstream currently holds a negotiated
// substream and has queued work, used by the connection handler to
// compute KeepAlive (§4.4).
func (d *Downstream) IsSending() bool {
	return d.substream != nil && d.sendQueue.Len() > 0
}

// OnEvent implements service.EventHandler.
func (d *Downstream) OnEvent(out *service.Outbox[DownstreamOut], ev DownstreamIn) {
	switch {
	case ev.SubstreamReady != nil:
		d.substreamRequested = false
		d.substream = ev.SubstreamReady

	case ev.SubstreamUpgradeFailed != nil:
		// Drop the failed attempt and let drive() below re-request a new
		// substream if work is still queued; ConnHandler's substreamAttempts
		// counter is what decides when to give up, not Downstream itself.
		d.substreamRequested = false
		d.substream = nil

	case ev.Send != nil:
		d.sendQueue.PushBack(ev.Send)
	}

	d.drive(out)
}

// drive attempts to make forward progress: request a substream if
// needed, or flush the head of the queue over an open one.
func (d *Downstream) drive(out *service.Outbox[DownstreamOut]) {
	if d.sendQueue.Len() > 0 && d.substream == nil && !d.substreamRequested {
		d.substreamRequested = true
		out.Emit(DownstreamOut{RequestNewSubstream: true})
		return
	}

	if d.substream == nil || d.sending {
		return
	}

	front := d.sendQueue.Front()
	if front == nil {
		return
	}

	d.sending = true
	payload := front.Value.([]byte)
	if err := d.substream.WriteFrame(context.Background(), payload); err != nil {
		d.sending = false
		d.substream = nil

		if d.sendRetries >= d.maxSendRetries {
			out.Emit(DownstreamOut{Err: ErrMaxSendRetriesReached})
			return
		}
		d.sendRetries++
		d.substreamRequested = true
		out.Emit(DownstreamOut{RequestNewSubstream: true})
		return
	}

	d.sending = false
	d.sendRetries = 0
	d.sendQueue.Remove(front)
	out.Emit(DownstreamOut{SendAck: true})
}

// NewDownstreamContext wraps Downstream in a buffered context.
func NewDownstreamContext(maxSendRetries int) *service.Context[DownstreamIn, DownstreamOut] {
	return service.NewContext[DownstreamIn, DownstreamOut](service.Wrap[DownstreamIn, DownstreamOut](NewDownstream(maxSendRetries)))
}
