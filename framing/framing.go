package framing

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

// In is the framing service's unified input event: either a logical send
// request (downstream) or inbound wire bytes (upstream).
type In struct {
	Send *DownstreamIn
	Recv *UpstreamIn
}

// Out is the framing service's unified output event, covering both the
// downstream (wire bytes to send) and upstream (decoded logical events)
// directions.
type Out struct {
	SendFrame            *SendFrame
	FragmentationFailed  *FragmentationFailed
	MessageReceived      *MessageReceived
	SubscriptionReceived *SubscriptionRequestReceived
	ControlReceived      *ControlMessageReceived
}

// framingMux is the concrete Mux instantiation pairing the downstream
// (encode) and upstream (decode) sub-services behind the unified Out type.
type framingMux = service.Mux[DownstreamIn, DownstreamOut, UpstreamIn, UpstreamOut, Out]

// Framing composes the Upstream and Downstream sub-services through a
// service.Mux, prioritising downstream (encode, wire-facing) over upstream
// (decode) so outbound frames flush ahead of further inbound processing on
// a shared poll loop (§4.5).
type Framing struct {
	mux *framingMux
}

// New creates a Framing service bounded by maxFrameSize.
func New(maxFrameSize int) *Framing {
	mux := service.NewMux[DownstreamIn, DownstreamOut, UpstreamIn, UpstreamOut, Out](
		NewDownstreamContext(maxFrameSize),
		NewUpstreamContext(),
		func(item DownstreamOut) Out {
			return Out{SendFrame: item.SendFrame, FragmentationFailed: item.FragmentationFailed}
		},
		func(item UpstreamOut) Out {
			return Out{
				MessageReceived:      item.MessageReceived,
				SubscriptionReceived: item.SubscriptionRequestReceived,
				ControlReceived:      item.ControlMessageReceived,
			}
		},
	)
	return &Framing{mux: mux}
}

// Recv feeds the framing service an input event, producing zero or more
// output events, downstream results ordered before upstream results
// (§4.5: downstream has priority).
func (f *Framing) Recv(ev In) []Out {
	switch {
	case ev.Send != nil:
		f.mux.Priority().DoSend(*ev.Send)
	case ev.Recv != nil:
		f.mux.Other().DoSend(*ev.Recv)
	}
	return f.Poll()
}

// Poll drains both sub-services, downstream events ordered before upstream
// events.
func (f *Framing) Poll() []Out {
	return f.mux.DrainPoll()
}

// ForwardMessageTo builds a Send-direction In event for a single
// destination peer carrying a message to forward.
func ForwardMessageTo(dest core.PeerId, msg *core.Message) In {
	return In{Send: &DownstreamIn{ForwardMessage: &ForwardMessage{Dest: dest, Message: msg}}}
}

// SendSubscriptionsTo builds a Send-direction In event carrying
// subscription actions to a single destination peer.
func SendSubscriptionsTo(dest core.PeerId, actions []core.SubscriptionAction) In {
	return In{Send: &DownstreamIn{SendSubscriptionRequest: &SendSubscriptionRequest{Dest: dest, Actions: actions}}}
}

// SendControlTo builds a Send-direction In event carrying a control
// message to a single destination peer.
func SendControlTo(dest core.PeerId, ctl *core.ControlMessage) In {
	return In{Send: &DownstreamIn{SendControlMessage: &SendControlMessage{Dest: dest, Control: ctl}}}
}

// ReceiveFrom builds a Recv-direction In event carrying inbound wire bytes
// from a single source peer.
func ReceiveFrom(src core.PeerId, bytes []byte) In {
	return In{Recv: &UpstreamIn{Src: src, Bytes: bytes}}
}
