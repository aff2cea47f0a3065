package pubsubcore

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/messageid"
	"github.com/libp2p/go-pubsub-core/subscriptions"
)

// Hash derives the wire TopicHash for a human-readable topic name using
// the configured hasher (identity by default; §3).
func (b *Behaviour) Hash(topic string) core.TopicHash {
	return b.cfg.Hasher.Hash(topic)
}

// Subscribe records a local subscription to topic and returns a
// Subscription the caller can read delivered messages from.
//
// Per the Open Question decision on subscribe-with-no-peers (§6): this
// never fails for lack of active peers. The subscription is always
// recorded. It is announced to a peer only when that peer connects (the
// whole local set is sent on NewPeerConnected); peers that are already
// connected when Subscribe is called are not sent the new subscription.
func (b *Behaviour) Subscribe(topic string, fn core.MessageIdFn) (*Subscription, error) {
	hash := b.Hash(topic)

	b.mu.Lock()
	b.subscriptions.DoSend(subscriptions.In{SubscriptionRequest: &subscriptions.Subscription{Topic: hash, MessageIdFn: fn}})
	b.drainSubscriptions()

	sub := &Subscription{topic: hash, ch: make(chan *MessageEvent, 32)}
	set, ok := b.subs[hash]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[hash] = set
	}
	set[sub] = struct{}{}
	sub.cancel = func() { b.removeSubscription(hash, sub) }
	b.mu.Unlock()

	return sub, nil
}

func (b *Behaviour) removeSubscription(topic core.TopicHash, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Unsubscribe removes the local subscription to topic entirely,
// cancelling every open Subscription for it.
func (b *Behaviour) Unsubscribe(topic string) error {
	hash := b.Hash(topic)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions.DoSend(subscriptions.In{UnsubscriptionRequest: &hash})
	b.drainSubscriptions()

	if set, ok := b.subs[hash]; ok {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, hash)
	}
	return nil
}

// IsSubscribed reports whether the local node currently subscribes to
// topic.
func (b *Behaviour) IsSubscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subsState.IsSubscribed(b.Hash(topic))
}

// Subscriptions returns the local node's current subscription set.
func (b *Behaviour) Subscriptions() []core.TopicHash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subsState.LocalSubscriptions()
}

// PeerSubscriptions returns the topics peer is known to subscribe to.
func (b *Behaviour) PeerSubscriptions(peer core.PeerId) []core.TopicHash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subsState.PeerSubscriptions(peer)
}

// Publish publishes data on topic. It fails with ErrNotSubscribed if the
// local node is not subscribed to topic, or wraps ErrInsufficientPeers
// in a PublishError if no peer is currently known to subscribe (§7).
func (b *Behaviour) Publish(topic string, data []byte) error {
	hash := b.Hash(topic)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subsState.IsSubscribed(hash) {
		return ErrNotSubscribed
	}

	msg := &core.Message{Topic: hash, Data: data}
	b.messageIDs.DoSend(messageid.In{Message: &messageid.MessageEvent{Published: true, Message: msg}})

	before := b.routerState.RoutingTablePeers(hash)
	b.drainMessageIDs()

	if len(before) == 0 {
		return &PublishError{Cause: ErrInsufficientPeers}
	}
	return nil
}
