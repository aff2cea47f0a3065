// Package router defines the fixed input/output event contract shared by
// every routing strategy (§4.8, §9 "pluggable routing strategy"). The
// flood variant lives in the router/flood subpackage; a future mesh/gossip
// variant would implement the same In/Out shape without touching the rest
// of the pipeline.
package router

import "github.com/libp2p/go-pubsub-core/core"

// In is the router's input event type.
type In struct {
	Subscribed       *core.TopicHash
	Unsubscribed     *core.TopicHash
	PeerSubscribed   *PeerTopic
	PeerUnsubscribed *PeerTopic
	PeerDisconnected *core.PeerId

	MessageReceived  *MessageReceived
	MessagePublished *MessagePublished

	// Control events are accepted but ignored by the flood variant; kept
	// here so a mesh/gossip router can observe them without changing the
	// shape the rest of the pipeline feeds.
	ControlReceived *ControlReceived
}

// PeerTopic names a peer and the topic it (un)subscribed to.
type PeerTopic struct {
	Peer  core.PeerId
	Topic core.TopicHash
}

// MessageReceived is a message received from a remote peer, already
// assigned a MessageId and passed the seen-cache check.
type MessageReceived struct {
	Src       core.PeerId
	Message   *core.Message
	MessageID core.MessageId
}

// MessagePublished is a message published locally, already assigned a
// MessageId and passed the seen-cache check.
type MessagePublished struct {
	Message   *core.Message
	MessageID core.MessageId
}

// ControlReceived carries a decoded control message from a peer.
type ControlReceived struct {
	Src     core.PeerId
	Control *core.ControlMessage
}

// Out is the router's output event type.
type Out struct {
	// ForwardMessage asks the behaviour to send Message to every peer in
	// Dest, excluding none (the sender, if any, is already excluded by
	// the router).
	ForwardMessage *ForwardMessage
}

// ForwardMessage is a forwarding decision: deliver Message to every peer in
// Dest.
type ForwardMessage struct {
	Dest    []core.PeerId
	Message *core.Message
}
