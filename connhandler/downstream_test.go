package connhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/service"
)

// fakeSubstream is a minimal in-memory Substream: it records every frame
// written and can be told to fail the next N writes.
type fakeSubstream struct {
	failNext int
	writes   [][]byte
	closed   bool
}

func (f *fakeSubstream) WriteFrame(_ context.Context, payload []byte) error {
	if f.failNext > 0 {
		f.failNext--
		return errors.New("write failed")
	}
	f.writes = append(f.writes, payload)
	return nil
}

func (f *fakeSubstream) Close() error {
	f.closed = true
	return nil
}

// driveThroughContext drives d the same way the rest of this module's
// services are driven in tests: wrap, send, drain. Kept separate so each
// call builds a fresh Context over the same long-lived Downstream,
// letting tests observe only the output produced by this one event.
func driveThroughContext(d *Downstream, ev DownstreamIn) []DownstreamOut {
	ctx := service.NewContext[DownstreamIn, DownstreamOut](service.Wrap[DownstreamIn, DownstreamOut](d))
	ctx.DoSend(ev)
	return service.DrainPoll(ctx)
}

func TestSendWithNoSubstreamRequestsOne(t *testing.T) {
	d := NewDownstream(2)
	out := driveThroughContext(d, DownstreamIn{Send: []byte("hello")})
	require.Len(t, out, 1)
	require.True(t, out[0].RequestNewSubstream)
}

func TestSubstreamReadyFlushesQueuedFrame(t *testing.T) {
	d := NewDownstream(2)
	driveThroughContext(d, DownstreamIn{Send: []byte("hello")})

	sub := &fakeSubstream{}
	out := driveThroughContext(d, DownstreamIn{SubstreamReady: sub})
	require.Len(t, out, 1)
	require.True(t, out[0].SendAck)
	require.Equal(t, [][]byte{[]byte("hello")}, sub.writes)
	require.False(t, d.IsSending(), "queue should be drained once the frame is flushed")
}

func TestWriteFailureRetriesThenGivesUp(t *testing.T) {
	d := NewDownstream(1) // allow exactly one retry
	driveThroughContext(d, DownstreamIn{Send: []byte("hello")})

	failing := &fakeSubstream{failNext: 100}
	out := driveThroughContext(d, DownstreamIn{SubstreamReady: failing})
	require.Len(t, out, 1)
	require.True(t, out[0].RequestNewSubstream, "first write failure should ask for a new substream")

	// Second attempt also fails, exhausting the one allowed retry.
	out = driveThroughContext(d, DownstreamIn{SubstreamReady: failing})
	require.Len(t, out, 1)
	require.ErrorIs(t, out[0].Err, ErrMaxSendRetriesReached)
}

func TestSubstreamUpgradeFailedRequestsAnotherSubstream(t *testing.T) {
	d := NewDownstream(2)
	driveThroughContext(d, DownstreamIn{Send: []byte("hello")})
	// Consume the RequestNewSubstream this produced.

	out := driveThroughContext(d, DownstreamIn{SubstreamUpgradeFailed: errors.New("boom")})
	require.Len(t, out, 1)
	require.True(t, out[0].RequestNewSubstream, "a failed upgrade should re-request a substream, not give up")
	require.Nil(t, out[0].Err)
}
