package core

// ControlMessage is the sum type of mesh control primitives. The flood
// router parses and ignores these; they are reserved for mesh/gossip
// variants built against the same framing service.
type ControlMessage struct {
	IHave []IHave
	IWant []IWant
	Graft []Graft
	Prune []Prune
}

// IsEmpty reports whether none of the four slices carry anything, the
// EmptyControl validation rule from §7.
func (c *ControlMessage) IsEmpty() bool {
	return c == nil || (len(c.IHave) == 0 && len(c.IWant) == 0 && len(c.Graft) == 0 && len(c.Prune) == 0)
}

// IHave announces message ids the sender has seen on a topic.
type IHave struct {
	Topic      TopicHash
	MessageIDs []MessageId
}

// IWant requests the sender's peer forward the named message ids.
type IWant struct {
	MessageIDs []MessageId
}

// Graft requests inclusion in a topic's mesh (mesh-router reserved).
type Graft struct {
	Topic TopicHash
}

// Prune notifies removal from a topic's mesh, optionally with peer-exchange
// hints and a backoff (mesh-router reserved).
type Prune struct {
	Topic    TopicHash
	Peers    []PeerExchange
	Backoff  uint64
	HasBackoff bool
}

// PeerExchange carries peer-exchange hints attached to a Prune.
type PeerExchange struct {
	PeerID           PeerId
	SignedPeerRecord []byte
}
