// Package flood implements the flood-routed variant of the protocol router
// (§4.8): every subscribed peer forwards every newly seen message on a
// topic to all other peers it knows to be subscribed.
package flood

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/router"
	"github.com/libp2p/go-pubsub-core/service"
)

// orderedPeerSet is an insertion-ordered set<PeerId>, giving the
// tie-break rule from §4.8 ("peers are addressed in the order they appear
// in the routing-table set") a concrete, deterministic meaning.
type orderedPeerSet struct {
	order []core.PeerId
	set   map[core.PeerId]struct{}
}

func newOrderedPeerSet() *orderedPeerSet {
	return &orderedPeerSet{set: make(map[core.PeerId]struct{})}
}

func (o *orderedPeerSet) add(p core.PeerId) bool {
	if _, ok := o.set[p]; ok {
		return false
	}
	o.set[p] = struct{}{}
	o.order = append(o.order, p)
	return true
}

func (o *orderedPeerSet) remove(p core.PeerId) bool {
	if _, ok := o.set[p]; !ok {
		return false
	}
	delete(o.set, p)
	for i, v := range o.order {
		if v == p {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

func (o *orderedPeerSet) len() int { return len(o.order) }

// snapshotExcluding returns every peer in insertion order except excluded,
// if present.
func (o *orderedPeerSet) snapshotExcluding(excluded core.PeerId, hasExcluded bool) []core.PeerId {
	out := make([]core.PeerId, 0, len(o.order))
	for _, p := range o.order {
		if hasExcluded && p == excluded {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Router is the flood-routed protocol router service. It keeps the
// routing table and its reverse index as mutual inverses: topicsToPeers
// maps a topic to the peers known to subscribe to it, peersToTopics
// maps a peer to the topics it is known to subscribe to, so a
// PeerDisconnected event can be resolved without scanning every topic.
type Router struct {
	subscriptions map[core.TopicHash]struct{}
	topicsToPeers map[core.TopicHash]*orderedPeerSet
	peersToTopics map[core.PeerId]map[core.TopicHash]struct{}
}

// New creates an empty flood router.
func New() *Router {
	return &Router{
		subscriptions: make(map[core.TopicHash]struct{}),
		topicsToPeers: make(map[core.TopicHash]*orderedPeerSet),
		peersToTopics: make(map[core.PeerId]map[core.TopicHash]struct{}),
	}
}

func (r *Router) isSubscribed(topic core.TopicHash) bool {
	_, ok := r.subscriptions[topic]
	return ok
}

// RoutingTablePeers returns the peers currently known to subscribe to
// topic, in tie-break order. Exposed for tests (§8 property 2, S1/S3/S6).
func (r *Router) RoutingTablePeers(topic core.TopicHash) []core.PeerId {
	set, ok := r.topicsToPeers[topic]
	if !ok {
		return nil
	}
	return set.snapshotExcluding(core.PeerId(""), false)
}

func (r *Router) pruneIfEmpty(topic core.TopicHash) {
	if set, ok := r.topicsToPeers[topic]; ok && set.len() == 0 {
		delete(r.topicsToPeers, topic)
	}
}

func (r *Router) linkPeerTopic(peer core.PeerId, topic core.TopicHash) {
	topics, ok := r.peersToTopics[peer]
	if !ok {
		topics = make(map[core.TopicHash]struct{})
		r.peersToTopics[peer] = topics
	}
	topics[topic] = struct{}{}
}

func (r *Router) unlinkPeerTopic(peer core.PeerId, topic core.TopicHash) {
	topics, ok := r.peersToTopics[peer]
	if !ok {
		return
	}
	delete(topics, topic)
	if len(topics) == 0 {
		delete(r.peersToTopics, peer)
	}
}

// OnEvent implements service.EventHandler.
func (r *Router) OnEvent(out *service.Outbox[router.Out], ev router.In) {
	switch {
	case ev.Subscribed != nil:
		r.subscriptions[*ev.Subscribed] = struct{}{}

	case ev.Unsubscribed != nil:
		delete(r.subscriptions, *ev.Unsubscribed)

	case ev.PeerSubscribed != nil:
		pt := ev.PeerSubscribed
		set, ok := r.topicsToPeers[pt.Topic]
		if !ok {
			set = newOrderedPeerSet()
			r.topicsToPeers[pt.Topic] = set
		}
		set.add(pt.Peer)
		r.linkPeerTopic(pt.Peer, pt.Topic)

	case ev.PeerUnsubscribed != nil:
		pt := ev.PeerUnsubscribed
		if set, ok := r.topicsToPeers[pt.Topic]; ok {
			set.remove(pt.Peer)
			r.pruneIfEmpty(pt.Topic)
		}
		r.unlinkPeerTopic(pt.Peer, pt.Topic)

	case ev.PeerDisconnected != nil:
		peer := *ev.PeerDisconnected
		for topic := range r.peersToTopics[peer] {
			if set, ok := r.topicsToPeers[topic]; ok {
				set.remove(peer)
				r.pruneIfEmpty(topic)
			}
		}
		delete(r.peersToTopics, peer)

	case ev.MessageReceived != nil:
		mr := ev.MessageReceived
		topic := mr.Message.Topic
		if !r.isSubscribed(topic) {
			return
		}
		set, ok := r.topicsToPeers[topic]
		if !ok {
			return
		}
		dest := set.snapshotExcluding(mr.Src, true)
		if len(dest) > 0 {
			out.Emit(router.Out{ForwardMessage: &router.ForwardMessage{Dest: dest, Message: mr.Message}})
		}

	case ev.MessagePublished != nil:
		mp := ev.MessagePublished
		topic := mp.Message.Topic
		if !r.isSubscribed(topic) {
			return
		}
		set, ok := r.topicsToPeers[topic]
		if !ok {
			return
		}
		dest := set.snapshotExcluding(core.PeerId(""), false)
		if len(dest) > 0 {
			out.Emit(router.Out{ForwardMessage: &router.ForwardMessage{Dest: dest, Message: mp.Message}})
		}

	case ev.ControlReceived != nil:
		// The flood variant has no mesh state to maintain; control
		// messages are parsed upstream and dropped here.
	}
}

// NewContext wraps the flood router in a buffered context.
func NewContext() *service.Context[router.In, router.Out] {
	return service.NewContext[router.In, router.Out](service.Wrap[router.In, router.Out](New()))
}
