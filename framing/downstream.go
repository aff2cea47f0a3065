package framing

import (
	"errors"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/pb"
	"github.com/libp2p/go-pubsub-core/service"
)

// ErrFragmentationFailed is returned when a single message, on its own,
// exceeds the configured max frame size and therefore cannot be encoded
// even as a frame of one (§4.5, §7).
var ErrFragmentationFailed = errors.New("framing: fragmentation failed")

// DownstreamIn is the downstream (logical -> wire) sub-service's input
// event.
type DownstreamIn struct {
	ForwardMessage          *ForwardMessage
	SendSubscriptionRequest *SendSubscriptionRequest
	SendControlMessage      *SendControlMessage
}

type ForwardMessage struct {
	Dest    core.PeerId
	Message *core.Message
}

type SendSubscriptionRequest struct {
	Dest    core.PeerId
	Actions []core.SubscriptionAction
}

type SendControlMessage struct {
	Dest    core.PeerId
	Control *core.ControlMessage
}

// DownstreamOut is the downstream sub-service's output event.
type DownstreamOut struct {
	SendFrame *SendFrame

	// FragmentationFailed is emitted instead of SendFrame when a message
	// cannot be encoded within max frame size.
	FragmentationFailed *FragmentationFailed
}

type SendFrame struct {
	Dest  core.PeerId
	Bytes []byte
}

type FragmentationFailed struct {
	Dest core.PeerId
	Err  error
}

// Downstream encodes logical send requests into wire frames, splitting
// subscriptions across multiple frames when they would otherwise exceed
// maxFrameSize (§4.5).
type Downstream struct {
	maxFrameSize int
}

// NewDownstream creates a Downstream sub-service bounded by maxFrameSize.
func NewDownstream(maxFrameSize int) *Downstream {
	return &Downstream{maxFrameSize: maxFrameSize}
}

// OnEvent implements service.EventHandler.
func (d *Downstream) OnEvent(out *service.Outbox[DownstreamOut], ev DownstreamIn) {
	switch {
	case ev.ForwardMessage != nil:
		d.encodeMessage(out, ev.ForwardMessage)

	case ev.SendSubscriptionRequest != nil:
		d.encodeSubscriptions(out, ev.SendSubscriptionRequest)

	case ev.SendControlMessage != nil:
		d.encodeControl(out, ev.SendControlMessage)
	}
}

func (d *Downstream) encodeMessage(out *service.Outbox[DownstreamOut], fm *ForwardMessage) {
	frame := &pb.Frame{Publish: []*pb.Message{messageToProto(fm.Message)}}
	if frame.Size() > d.maxFrameSize {
		out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: fm.Dest, Err: ErrFragmentationFailed}})
		return
	}
	bytes, err := frame.Marshal()
	if err != nil {
		out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: fm.Dest, Err: err}})
		return
	}
	out.Emit(DownstreamOut{SendFrame: &SendFrame{Dest: fm.Dest, Bytes: bytes}})
}

// encodeSubscriptions greedily packs subscription actions into as many
// frames as necessary so that each stays within maxFrameSize (§4.5
// fragmentation).
func (d *Downstream) encodeSubscriptions(out *service.Outbox[DownstreamOut], req *SendSubscriptionRequest) {
	var chunk []*pb.SubOpt
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		frame := &pb.Frame{Subscriptions: chunk}
		bytes, err := frame.Marshal()
		if err != nil {
			out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: req.Dest, Err: err}})
		} else {
			out.Emit(DownstreamOut{SendFrame: &SendFrame{Dest: req.Dest, Bytes: bytes}})
		}
		chunk = nil
	}

	size := 0
	for _, action := range req.Actions {
		opt := subOptToProto(action)
		frame := &pb.Frame{Subscriptions: []*pb.SubOpt{opt}}
		optCost := frame.Size()

		if optCost > d.maxFrameSize {
			out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: req.Dest, Err: ErrFragmentationFailed}})
			continue
		}

		if size+optCost > d.maxFrameSize {
			flush()
			size = 0
		}

		chunk = append(chunk, opt)
		size += optCost
	}
	flush()
}

func (d *Downstream) encodeControl(out *service.Outbox[DownstreamOut], req *SendControlMessage) {
	frame := &pb.Frame{Control: controlToProto(req.Control)}
	if frame.Size() > d.maxFrameSize {
		out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: req.Dest, Err: ErrFragmentationFailed}})
		return
	}
	bytes, err := frame.Marshal()
	if err != nil {
		out.Emit(DownstreamOut{FragmentationFailed: &FragmentationFailed{Dest: req.Dest, Err: err}})
		return
	}
	out.Emit(DownstreamOut{SendFrame: &SendFrame{Dest: req.Dest, Bytes: bytes}})
}

// NewDownstreamContext wraps Downstream in a buffered context.
func NewDownstreamContext(maxFrameSize int) *service.Context[DownstreamIn, DownstreamOut] {
	return service.NewContext[DownstreamIn, DownstreamOut](service.Wrap[DownstreamIn, DownstreamOut](NewDownstream(maxFrameSize)))
}
