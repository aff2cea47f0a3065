// Package framing implements the framing service (§4.5): decoding wire
// bytes into validated logical frames (upstream), and encoding logical
// send requests into wire bytes, fragmenting as needed (downstream).
package framing

import (
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/pb"
)

// validateSubOpt enforces §7's MissingTopicId/MissingSubscribeFlag rules.
func validateSubOpt(s *pb.SubOpt) error {
	if s.TopicID == nil || *s.TopicID == "" {
		return core.ErrMissingTopicID
	}
	if s.Subscribe == nil {
		return core.ErrMissingSubscribeFlag
	}
	return nil
}

// validateMessage enforces §3/§7's EmptyTopic/InvalidPeerId rules. Peer-id
// parsing is delegated to the caller (peer.IDFromBytes), since pb itself
// has no notion of PeerId.
func validateMessage(m *pb.Message) error {
	if m.Topic == nil || *m.Topic == "" {
		return core.ErrEmptyTopic
	}
	return nil
}

// validateControl enforces §7's EmptyControl rule.
func validateControl(c *pb.Control) error {
	if c.IsEmpty() {
		return core.ErrEmptyControl
	}
	return nil
}
