package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

func drive(t *testing.T, s *Service, evs ...In) []Out {
	t.Helper()
	ctx := service.NewContext[In, Out](service.Wrap[In, Out](s))
	for _, ev := range evs {
		ctx.DoSend(ev)
	}
	return service.DrainPoll(ctx)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	topic := core.TopicHash("news")
	s := New()

	out := drive(t, s, In{SubscriptionRequest: &Subscription{Topic: topic}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Subscribed)

	// Subscribing again to the same topic emits nothing further.
	out = drive(t, s, In{SubscriptionRequest: &Subscription{Topic: topic}})
	require.Empty(t, out, "re-subscribing to an already-subscribed topic should be a no-op")
	require.True(t, s.IsSubscribed(topic))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	topic := core.TopicHash("news")
	s := New()
	drive(t, s, In{SubscriptionRequest: &Subscription{Topic: topic}})

	out := drive(t, s, In{UnsubscriptionRequest: &topic})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Unsubscribed)

	out = drive(t, s, In{UnsubscriptionRequest: &topic})
	require.Empty(t, out, "unsubscribing an already-unsubscribed topic should be a no-op")
	require.False(t, s.IsSubscribed(topic))
}

func TestNewPeerConnectedAnnouncesExistingLocalSubscriptionsOnly(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")

	// No local subscriptions yet: nothing to announce.
	out := drive(t, s, In{NewPeerConnected: &peer})
	require.Empty(t, out, "expected no SendSubscriptions with an empty local set")

	topic := core.TopicHash("news")
	drive(t, s, In{SubscriptionRequest: &Subscription{Topic: topic}})

	out = drive(t, s, In{NewPeerConnected: &peer})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].SendSubscriptions)
	require.Equal(t, peer, out[0].SendSubscriptions.Dest)
	require.Equal(t, []core.TopicHash{topic}, out[0].SendSubscriptions.Topics)
}

func TestPeerDisconnectDropsPeerSubscriptionTable(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")
	topic := core.TopicHash("news")

	drive(t, s, In{PeerSubscription: &PeerSubscriptionRequest{
		Src:    peer,
		Action: core.SubscriptionAction{Topic: topic, Subscribe: true},
	}})
	require.Len(t, s.PeerSubscriptions(peer), 1)

	drive(t, s, In{PeerDisconnected: &peer})
	require.Empty(t, s.PeerSubscriptions(peer), "expected peer subscriptions to be cleared after disconnect")
}

func TestPeerSubscribeUnsubscribeEmitsMatchingEvents(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")
	topic := core.TopicHash("news")

	out := drive(t, s, In{PeerSubscription: &PeerSubscriptionRequest{
		Src:    peer,
		Action: core.SubscriptionAction{Topic: topic, Subscribe: true},
	}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].PeerSubscribed)

	out = drive(t, s, In{PeerSubscription: &PeerSubscriptionRequest{
		Src:    peer,
		Action: core.SubscriptionAction{Topic: topic, Subscribe: false},
	}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].PeerUnsubscribed)
}
