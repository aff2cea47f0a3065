package pubsubcore

import (
	"context"

	"github.com/libp2p/go-pubsub-core/core"
)

// MessageEvent is a message received from a remote peer and delivered to an
// application subscriber. Messages this node publishes itself are not
// delivered to its own subscribers.
type MessageEvent struct {
	Topic   core.TopicHash
	Message *core.Message
	ID      core.MessageId

	// Src is the peer the message was received from; HasSrc is set on
	// every delivered event.
	Src    core.PeerId
	HasSrc bool
}

// PeerEvent reports a peer connecting to or disconnecting from the
// behaviour, independent of any particular topic.
type PeerEvent struct {
	Peer      core.PeerId
	Connected bool
}

// Subscription is a handle returned by Behaviour.Subscribe: a per-topic
// stream of MessageEvent values, mirroring the teacher's own
// *pubsub.Subscription/Next(ctx) shape.
type Subscription struct {
	topic  core.TopicHash
	ch     chan *MessageEvent
	cancel func()
}

// Topic returns the hash this subscription was opened for.
func (s *Subscription) Topic() core.TopicHash { return s.topic }

// Next blocks until a message arrives on this subscription's topic or ctx
// is cancelled.
func (s *Subscription) Next(ctx context.Context) (*MessageEvent, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return nil, ErrNotSubscribed
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel detaches this Subscription from the behaviour so no further
// messages are delivered to it. It does not close the channel and does
// not unsubscribe the topic at the protocol level, even when it was the
// last open Subscription on the topic; Behaviour.Unsubscribe does that
// explicitly.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
