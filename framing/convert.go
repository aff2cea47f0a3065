package framing

import (
	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/pb"
)

// messageFromProto decodes and validates a wire Message, normalising empty
// optional byte fields to absent per §3.
func messageFromProto(m *pb.Message) (*core.Message, error) {
	if err := validateMessage(m); err != nil {
		return nil, err
	}

	out := &core.Message{
		Topic: core.TopicHash(m.GetTopic()),
		Data:  nonEmpty(m.GetData()),
	}

	if from := m.GetFrom(); len(from) > 0 {
		pid, err := peer.IDFromBytes(from)
		if err != nil {
			return nil, core.ErrInvalidPeerId
		}
		out.From = pid
		out.HasFrom = true
	}

	out.Seqno = nonEmpty(m.GetSeqno())
	out.Signature = nonEmpty(m.GetSignature())
	out.Key = nonEmpty(m.GetKey())

	return out, nil
}

// messageToProto encodes a core.Message back to its wire representation.
func messageToProto(m *core.Message) *pb.Message {
	out := &pb.Message{
		Topic: strPtr(string(m.Topic)),
		Data:  m.Data,
	}
	if m.HasFrom {
		out.From = []byte(m.From)
	}
	out.Seqno = m.Seqno
	out.Signature = m.Signature
	out.Key = m.Key
	return out
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func strPtr(s string) *string { return &s }

// subOptFromProto decodes and validates a wire SubOpt.
func subOptFromProto(s *pb.SubOpt) (core.SubscriptionAction, error) {
	if err := validateSubOpt(s); err != nil {
		return core.SubscriptionAction{}, err
	}
	return core.SubscriptionAction{
		Topic:     core.TopicHash(s.GetTopicid()),
		Subscribe: s.GetSubscribe(),
	}, nil
}

func subOptToProto(a core.SubscriptionAction) *pb.SubOpt {
	topic := string(a.Topic)
	sub := a.Subscribe
	return &pb.SubOpt{TopicID: &topic, Subscribe: &sub}
}

// controlFromProto decodes and validates a wire Control block.
func controlFromProto(c *pb.Control) (*core.ControlMessage, error) {
	if err := validateControl(c); err != nil {
		return nil, err
	}

	out := &core.ControlMessage{}
	for _, ih := range c.Ihave {
		ids := make([]core.MessageId, 0, len(ih.MessageIDs))
		for _, id := range ih.MessageIDs {
			ids = append(ids, core.MessageId(id))
		}
		out.IHave = append(out.IHave, core.IHave{Topic: core.TopicHash(ih.GetTopicid()), MessageIDs: ids})
	}
	for _, iw := range c.Iwant {
		ids := make([]core.MessageId, 0, len(iw.MessageIDs))
		for _, id := range iw.MessageIDs {
			ids = append(ids, core.MessageId(id))
		}
		out.IWant = append(out.IWant, core.IWant{MessageIDs: ids})
	}
	for _, g := range c.Graft {
		out.Graft = append(out.Graft, core.Graft{Topic: core.TopicHash(g.GetTopicid())})
	}
	for _, p := range c.Prune {
		prune := core.Prune{Topic: core.TopicHash(p.GetTopicid())}
		for _, peerInfo := range p.Peers {
			pe := core.PeerExchange{SignedPeerRecord: peerInfo.SignedPeerRecord}
			if len(peerInfo.PeerID) > 0 {
				if pid, err := peer.IDFromBytes(peerInfo.PeerID); err == nil {
					pe.PeerID = pid
				}
			}
			prune.Peers = append(prune.Peers, pe)
		}
		if p.Backoff != nil {
			prune.Backoff = *p.Backoff
			prune.HasBackoff = true
		}
		out.Prune = append(out.Prune, prune)
	}

	return out, nil
}

func controlToProto(c *core.ControlMessage) *pb.Control {
	out := &pb.Control{}
	for _, ih := range c.IHave {
		topic := string(ih.Topic)
		ids := make([][]byte, 0, len(ih.MessageIDs))
		for _, id := range ih.MessageIDs {
			ids = append(ids, []byte(id))
		}
		out.Ihave = append(out.Ihave, &pb.ControlIHave{TopicID: &topic, MessageIDs: ids})
	}
	for _, iw := range c.IWant {
		ids := make([][]byte, 0, len(iw.MessageIDs))
		for _, id := range iw.MessageIDs {
			ids = append(ids, []byte(id))
		}
		out.Iwant = append(out.Iwant, &pb.ControlIWant{MessageIDs: ids})
	}
	for _, g := range c.Graft {
		topic := string(g.Topic)
		out.Graft = append(out.Graft, &pb.ControlGraft{TopicID: &topic})
	}
	for _, p := range c.Prune {
		topic := string(p.Topic)
		cp := &pb.ControlPrune{TopicID: &topic}
		for _, pe := range p.Peers {
			cp.Peers = append(cp.Peers, &pb.PeerInfo{PeerID: []byte(pe.PeerID), SignedPeerRecord: pe.SignedPeerRecord})
		}
		if p.HasBackoff {
			backoff := p.Backoff
			cp.Backoff = &backoff
		}
		out.Prune = append(out.Prune, cp)
	}
	return out
}
