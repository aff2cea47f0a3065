package messageid

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

func TestDefaultIDFromPeerAndSeqno(t *testing.T) {
	s := New()
	msg := &core.Message{Topic: "news", From: core.PeerId("peerA"), HasFrom: true, Seqno: []byte{1, 2, 3}}

	out := drive(t, s, In{Message: &MessageEvent{Published: false, Src: core.PeerId("peerA"), Message: msg}})
	require.Len(t, out, 1)
	want := core.MessageId(core.PeerId("peerA").String() + string([]byte{1, 2, 3}))
	require.Equal(t, want, out[0].ID)
	require.False(t, out[0].Published, "expected Published=false for a received message")
}

func TestPublishedVsReceivedFlagAndSrc(t *testing.T) {
	s := New()
	msg := &core.Message{Topic: "news", Seqno: []byte{9}}

	out := drive(t, s, In{Message: &MessageEvent{Published: true, Message: msg}})
	require.Len(t, out, 1)
	require.True(t, out[0].Published)
	require.False(t, out[0].HasSrc)

	src := core.PeerId("peerB")
	out = drive(t, s, In{Message: &MessageEvent{Published: false, Src: src, Message: msg}})
	require.Len(t, out, 1)
	require.False(t, out[0].Published)
	require.True(t, out[0].HasSrc)
	require.Equal(t, src, out[0].Src)
}

func TestPerTopicMessageIdFnOverridesDefault(t *testing.T) {
	topic := core.TopicHash("custom")
	s := New()

	custom := func(_ core.PeerId, _ bool, ref core.Ref) core.MessageId {
		return core.MessageId("fixed-id")
	}

	drive(t, s, In{Subscription: &SubscriptionEvent{Subscribed: true, Topic: topic, MessageIdFn: custom}})

	out := drive(t, s, In{Message: &MessageEvent{Published: true, Message: &core.Message{Topic: topic}}})
	require.Len(t, out, 1)
	require.Equal(t, core.MessageId("fixed-id"), out[0].ID)

	// After unsubscribing, the override is dropped and the default applies
	// again to messages on the same topic.
	drive(t, s, In{Subscription: &SubscriptionEvent{Subscribed: false, Topic: topic}})
	out = drive(t, s, In{Message: &MessageEvent{Published: true, Message: &core.Message{Topic: topic, Seqno: []byte{1}}}})
	require.Len(t, out, 1)
	require.NotEqual(t, core.MessageId("fixed-id"), out[0].ID, "expected default MessageIdFn after unsubscribe")
}
