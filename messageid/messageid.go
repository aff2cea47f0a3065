// Package messageid implements the message-ID service (§4.9): it derives a
// MessageId for every published or received message using a per-topic
// MessageIdFn, defaulting to core.DefaultMessageIdFn when a topic registers
// none.
package messageid

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

// SubscriptionEvent mirrors the local subscribe/unsubscribe lifecycle the
// service needs to track per-topic ID functions.
type SubscriptionEvent struct {
	Subscribed  bool
	Topic       core.TopicHash
	MessageIdFn core.MessageIdFn // nil means "use the default"
}

// MessageEvent carries either a locally published message or one received
// from a remote peer.
type MessageEvent struct {
	Published bool

	// Received-only.
	Src core.PeerId

	Message *core.Message
}

// In is the message-ID service's input event type.
type In struct {
	Subscription *SubscriptionEvent
	Message      *MessageEvent
}

// Out is the message-ID service's output event type.
type Out struct {
	// Published is true for a MessagePublished output, false for a
	// MessageReceived output.
	Published bool

	Src     core.PeerId
	HasSrc  bool
	Message *core.Message
	ID      core.MessageId
}

// Service implements the §4.9 message-ID service.
type Service struct {
	perTopicIDFn map[core.TopicHash]core.MessageIdFn
}

// New creates an empty message-ID service.
func New() *Service {
	return &Service{perTopicIDFn: make(map[core.TopicHash]core.MessageIdFn)}
}

func (s *Service) fnFor(topic core.TopicHash) core.MessageIdFn {
	if fn, ok := s.perTopicIDFn[topic]; ok && fn != nil {
		return fn
	}
	return core.DefaultMessageIdFn
}

// OnEvent implements service.EventHandler.
func (s *Service) OnEvent(out *service.Outbox[Out], ev In) {
	switch {
	case ev.Subscription != nil:
		sub := ev.Subscription
		if sub.Subscribed {
			s.perTopicIDFn[sub.Topic] = sub.MessageIdFn
		} else {
			delete(s.perTopicIDFn, sub.Topic)
		}
	case ev.Message != nil:
		m := ev.Message
		fn := s.fnFor(m.Message.Topic)
		if m.Published {
			id := fn(core.PeerId(""), false, m.Message.Ref())
			out.Emit(Out{Published: true, Message: m.Message, ID: id})
		} else {
			id := fn(m.Src, true, m.Message.Ref())
			out.Emit(Out{Published: false, Src: m.Src, HasSrc: true, Message: m.Message, ID: id})
		}
	}
}

// NewContext wraps the service in a buffered context, the way every other
// service in this module is driven.
func NewContext() *service.Context[In, Out] {
	return service.NewContext[In, Out](service.Wrap[In, Out](New()))
}
