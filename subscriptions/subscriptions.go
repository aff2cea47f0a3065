// Package subscriptions implements the subscriptions service (§4.7): it
// tracks the local node's own subscriptions and every peer's remote
// subscriptions, announcing the local set to newly connected peers.
package subscriptions

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

// Subscription is a local subscription request: a topic plus an optional
// per-topic message-ID function override.
type Subscription struct {
	Topic       core.TopicHash
	MessageIdFn core.MessageIdFn
}

// In is the subscriptions service's input event type.
type In struct {
	SubscriptionRequest   *Subscription
	UnsubscriptionRequest *core.TopicHash
	PeerSubscription      *PeerSubscriptionRequest
	NewPeerConnected      *core.PeerId
	PeerDisconnected      *core.PeerId
}

// PeerSubscriptionRequest is a subscribe/unsubscribe action received from a
// remote peer.
type PeerSubscriptionRequest struct {
	Src    core.PeerId
	Action core.SubscriptionAction
}

// Out is the subscriptions service's output event type.
type Out struct {
	Subscribed   *Subscribed
	Unsubscribed *core.TopicHash

	PeerSubscribed   *PeerTopic
	PeerUnsubscribed *PeerTopic

	SendSubscriptions *SendSubscriptions
}

// Subscribed is emitted when the local node newly subscribes to a topic.
type Subscribed struct {
	Topic       core.TopicHash
	MessageIdFn core.MessageIdFn
}

// PeerTopic names a peer and a topic it (un)subscribed to.
type PeerTopic struct {
	Peer  core.PeerId
	Topic core.TopicHash
}

// SendSubscriptions instructs the behaviour to announce the full local
// subscription set to a newly connected peer.
type SendSubscriptions struct {
	Dest   core.PeerId
	Topics []core.TopicHash
}

// orderedSet is a minimal insertion-ordered string set, mirroring the
// "ordered set<TopicHash>" the spec calls for.
type orderedSet struct {
	order []core.TopicHash
	set   map[core.TopicHash]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{set: make(map[core.TopicHash]struct{})}
}

func (o *orderedSet) has(t core.TopicHash) bool {
	_, ok := o.set[t]
	return ok
}

func (o *orderedSet) add(t core.TopicHash) bool {
	if o.has(t) {
		return false
	}
	o.set[t] = struct{}{}
	o.order = append(o.order, t)
	return true
}

func (o *orderedSet) remove(t core.TopicHash) bool {
	if !o.has(t) {
		return false
	}
	delete(o.set, t)
	for i, v := range o.order {
		if v == t {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

func (o *orderedSet) snapshot() []core.TopicHash {
	out := make([]core.TopicHash, len(o.order))
	copy(out, o.order)
	return out
}

func (o *orderedSet) len() int { return len(o.order) }

// Service implements the §4.7 subscriptions service.
type Service struct {
	local       *orderedSet
	localFns    map[core.TopicHash]core.MessageIdFn
	peerSubs    map[core.PeerId]*orderedSet
}

// New creates an empty subscriptions service.
func New() *Service {
	return &Service{
		local:    newOrderedSet(),
		localFns: make(map[core.TopicHash]core.MessageIdFn),
		peerSubs: make(map[core.PeerId]*orderedSet),
	}
}

// IsSubscribed reports whether the local node subscribes to topic.
func (s *Service) IsSubscribed(topic core.TopicHash) bool {
	return s.local.has(topic)
}

// LocalSubscriptions returns a snapshot of the local subscription set.
func (s *Service) LocalSubscriptions() []core.TopicHash {
	return s.local.snapshot()
}

// PeerSubscriptions returns a snapshot of a peer's known subscriptions.
func (s *Service) PeerSubscriptions(peer core.PeerId) []core.TopicHash {
	set, ok := s.peerSubs[peer]
	if !ok {
		return nil
	}
	return set.snapshot()
}

// OnEvent implements service.EventHandler.
func (s *Service) OnEvent(out *service.Outbox[Out], ev In) {
	switch {
	case ev.SubscriptionRequest != nil:
		req := ev.SubscriptionRequest
		if s.local.add(req.Topic) {
			s.localFns[req.Topic] = req.MessageIdFn
			out.Emit(Out{Subscribed: &Subscribed{Topic: req.Topic, MessageIdFn: req.MessageIdFn}})
		}

	case ev.UnsubscriptionRequest != nil:
		topic := *ev.UnsubscriptionRequest
		if s.local.remove(topic) {
			delete(s.localFns, topic)
			t := topic
			out.Emit(Out{Unsubscribed: &t})
		}

	case ev.PeerSubscription != nil:
		req := ev.PeerSubscription
		set, ok := s.peerSubs[req.Src]
		if !ok {
			set = newOrderedSet()
			s.peerSubs[req.Src] = set
		}
		if req.Action.Subscribe {
			if set.add(req.Action.Topic) {
				out.Emit(Out{PeerSubscribed: &PeerTopic{Peer: req.Src, Topic: req.Action.Topic}})
			}
		} else {
			if set.remove(req.Action.Topic) {
				out.Emit(Out{PeerUnsubscribed: &PeerTopic{Peer: req.Src, Topic: req.Action.Topic}})
			}
		}

	case ev.NewPeerConnected != nil:
		if s.local.len() > 0 {
			out.Emit(Out{SendSubscriptions: &SendSubscriptions{
				Dest:   *ev.NewPeerConnected,
				Topics: s.local.snapshot(),
			}})
		}

	case ev.PeerDisconnected != nil:
		delete(s.peerSubs, *ev.PeerDisconnected)
	}
}

// NewContext wraps the service in a buffered context.
func NewContext() *service.Context[In, Out] {
	return service.NewContext[In, Out](service.Wrap[In, Out](New()))
}
