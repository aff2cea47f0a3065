package framing

import (
	"github.com/ipfs/go-log/v2"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/pb"
	"github.com/libp2p/go-pubsub-core/service"
)

var logger = log.Logger("pubsub/framing")

// UpstreamIn is the upstream (wire -> logical) sub-service's input event.
type UpstreamIn struct {
	Src   core.PeerId
	Bytes []byte
}

// UpstreamOut is the upstream sub-service's output event.
type UpstreamOut struct {
	MessageReceived             *MessageReceived
	SubscriptionRequestReceived *SubscriptionRequestReceived
	ControlMessageReceived      *ControlMessageReceived
}

type MessageReceived struct {
	Src     core.PeerId
	Message *core.Message
}

type SubscriptionRequestReceived struct {
	Src    core.PeerId
	Action core.SubscriptionAction
}

type ControlMessageReceived struct {
	Src     core.PeerId
	Control *core.ControlMessage
}

// Upstream decodes inbound wire bytes into validated logical events.
type Upstream struct{}

// NewUpstream creates an Upstream sub-service.
func NewUpstream() *Upstream { return &Upstream{} }

// OnEvent implements service.EventHandler.
func (u *Upstream) OnEvent(out *service.Outbox[UpstreamOut], ev UpstreamIn) {
	wire := &pb.Frame{}
	if err := wire.Unmarshal(ev.Bytes); err != nil {
		logger.Debugf("discarding unparseable frame from %s: %s", ev.Src, err)
		return
	}

	frame := &core.Frame{}

	for _, pmsg := range wire.Publish {
		msg, err := messageFromProto(pmsg)
		if err != nil {
			logger.Debugf("discarding invalid message from %s: %s", ev.Src, err)
			continue
		}
		frame.Messages = append(frame.Messages, msg)
	}

	for _, subopt := range wire.Subscriptions {
		action, err := subOptFromProto(subopt)
		if err != nil {
			logger.Debugf("discarding invalid subscription option from %s: %s", ev.Src, err)
			continue
		}
		frame.Subscriptions = append(frame.Subscriptions, action)
	}

	if wire.Control != nil {
		ctl, err := controlFromProto(wire.Control)
		if err != nil {
			logger.Debugf("discarding invalid control message from %s: %s", ev.Src, err)
		} else {
			frame.Control = ctl
		}
	}

	if err := frame.Validate(); err != nil {
		logger.Debugf("discarding invalid frame from %s: %s", ev.Src, err)
		return
	}

	for _, msg := range frame.Messages {
		out.Emit(UpstreamOut{MessageReceived: &MessageReceived{Src: ev.Src, Message: msg}})
	}
	for _, action := range frame.Subscriptions {
		out.Emit(UpstreamOut{SubscriptionRequestReceived: &SubscriptionRequestReceived{Src: ev.Src, Action: action}})
	}
	if frame.Control != nil {
		out.Emit(UpstreamOut{ControlMessageReceived: &ControlMessageReceived{Src: ev.Src, Control: frame.Control}})
	}
}

// NewUpstreamContext wraps Upstream in a buffered context.
func NewUpstreamContext() *service.Context[UpstreamIn, UpstreamOut] {
	return service.NewContext[UpstreamIn, UpstreamOut](service.Wrap[UpstreamIn, UpstreamOut](NewUpstream()))
}
