package flood

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/router"
	"github.com/libp2p/go-pubsub-core/service"
)

func drive(t *testing.T, r *Router, evs ...router.In) []router.Out {
	t.Helper()
	ctx := service.NewContext[router.In, router.Out](service.Wrap[router.In, router.Out](r))
	for _, ev := range evs {
		ctx.DoSend(ev)
	}
	return service.DrainPoll(ctx)
}

func TestForwardsOnlyToOtherSubscribedPeers(t *testing.T) {
	topic := core.TopicHash("news")
	peerA := core.PeerId("a")
	peerB := core.PeerId("b")
	peerC := core.PeerId("c")

	r := New()
	out := drive(t, r,
		router.In{Subscribed: &topic},
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerA, Topic: topic}},
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerB, Topic: topic}},
		// peerC never subscribes and must never receive a forward.
		router.In{MessageReceived: &router.MessageReceived{
			Src:       peerA,
			Message:   &core.Message{Topic: topic, Data: []byte("hi")},
			MessageID: "m1",
		}},
	)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].ForwardMessage)
	dest := out[0].ForwardMessage.Dest
	require.Equal(t, []core.PeerId{peerB}, dest, "excluding source %s, never peerC", peerA)
}

func TestNoForwardWhenNotLocallySubscribed(t *testing.T) {
	topic := core.TopicHash("news")
	peerA := core.PeerId("a")

	r := New()
	out := drive(t, r,
		// Note: no Subscribed event for this topic.
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerA, Topic: topic}},
		router.In{MessagePublished: &router.MessagePublished{
			Message:   &core.Message{Topic: topic, Data: []byte("hi")},
			MessageID: "m1",
		}},
	)
	require.Empty(t, out, "expected no forward when router isn't subscribed to the topic")
}

func TestPeerDisconnectPrunesEveryTopicInOneShot(t *testing.T) {
	topicA := core.TopicHash("a-topic")
	topicB := core.TopicHash("b-topic")
	peer := core.PeerId("p")

	r := New()
	drive(t, r,
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peer, Topic: topicA}},
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peer, Topic: topicB}},
	)

	require.Len(t, r.RoutingTablePeers(topicA), 1, "setup failed: expected peer registered under both topics")
	require.Len(t, r.RoutingTablePeers(topicB), 1)

	p := peer
	drive(t, r, router.In{PeerDisconnected: &p})

	require.Empty(t, r.RoutingTablePeers(topicA), "topicA should have no peers after disconnect")
	require.Empty(t, r.RoutingTablePeers(topicB), "topicB should have no peers after disconnect")
	_, ok := r.peersToTopics[peer]
	require.False(t, ok, "peersToTopics should no longer track the disconnected peer")
}

func TestPeerUnsubscribePrunesEmptyTopicEntry(t *testing.T) {
	topic := core.TopicHash("news")
	peer := core.PeerId("p")

	r := New()
	drive(t, r, router.In{PeerSubscribed: &router.PeerTopic{Peer: peer, Topic: topic}})
	drive(t, r, router.In{PeerUnsubscribed: &router.PeerTopic{Peer: peer, Topic: topic}})

	_, ok := r.topicsToPeers[topic]
	require.False(t, ok, "topicsToPeers should prune the topic entry once its peer set is empty")
}

func TestRoutingTablePeersTieBreakIsInsertionOrder(t *testing.T) {
	topic := core.TopicHash("news")
	peerA, peerB, peerC := core.PeerId("a"), core.PeerId("b"), core.PeerId("c")

	r := New()
	drive(t, r,
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerB, Topic: topic}},
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerA, Topic: topic}},
		router.In{PeerSubscribed: &router.PeerTopic{Peer: peerC, Topic: topic}},
	)

	got := r.RoutingTablePeers(topic)
	want := []core.PeerId{peerB, peerA, peerC}
	require.Equal(t, want, got, "RoutingTablePeers should tie-break by insertion order")
}
