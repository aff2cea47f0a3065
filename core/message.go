// Package core defines the shared data model of the pubsub pipeline:
// peer/connection identifiers, messages, topic hashes, message IDs, and the
// logical (as opposed to wire) subscription and control types. Every
// service package in this module depends on it; it depends on nothing in
// this module besides topichash, so it carries no import-cycle risk.
package core

import (
	"errors"

	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/libp2p/go-pubsub-core/topichash"
)

// PeerId identifies a remote peer, as supplied by the host networking
// layer.
type PeerId = peer.ID

// ConnectionId identifies one physical connection to a peer. Multiple
// connections per peer are possible.
type ConnectionId uint64

// TopicHash is an opaque, orderable, hashable topic identifier.
type TopicHash = topichash.TopicHash

// Message is the application payload unit exchanged over a topic.
//
// From, Seqno, Signature and Key are optional; empty byte slices on the
// wire are normalised to nil (absent) when decoded.
type Message struct {
	Topic     TopicHash
	Data      []byte
	From      PeerId
	HasFrom   bool
	Seqno     []byte
	Signature []byte
	Key       []byte
}

// Validate checks the Message invariants from §3: Topic must be non-empty.
// The From field, when HasFrom is set, is already a parsed PeerId by
// construction (the framing decoder is responsible for that check).
func (m *Message) Validate() error {
	if m.Topic == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Ref is the part of a Message a MessageIdFn derives an ID from.
type Ref struct {
	From    PeerId
	HasFrom bool
	Seqno   []byte
}

// Ref extracts this message's own From/Seqno fields into a Ref, used by the
// message-ID service for both published and received messages.
func (m *Message) Ref() Ref {
	return Ref{From: m.From, HasFrom: m.HasFrom, Seqno: m.Seqno}
}

// MessageId uniquely names a message within the deduplication window. It is
// commonly up to 32 bytes but no length is enforced by the core.
type MessageId string

// MessageIdFn derives a MessageId for a message, optionally knowing which
// peer propagated it (hasPropagator is false when the message was just
// published locally).
type MessageIdFn func(propagator PeerId, hasPropagator bool, ref Ref) MessageId

// placeholderSeed substitutes for an absent From field in the default
// message-ID function; it is not a valid encoded PeerId so it can never
// collide with a real one.
const placeholderSeed = "\x00"

// DefaultMessageIdFn concatenates the From peer id (or a fixed placeholder
// when absent) with the seqno, per §3.
func DefaultMessageIdFn(_ PeerId, _ bool, ref Ref) MessageId {
	from := placeholderSeed
	if ref.HasFrom {
		from = ref.From.String()
	}
	return MessageId(from + string(ref.Seqno))
}

// SubscriptionAction is a subscribe or unsubscribe announcement for a
// topic.
type SubscriptionAction struct {
	Topic     TopicHash
	Subscribe bool
}

var (
	// ErrEmptyFrame is returned when decoding a frame with no
	// subscriptions, messages or control block.
	ErrEmptyFrame = errors.New("pubsubcore: empty frame")
	// ErrEmptyTopic is returned when a message or subscription carries an
	// empty topic.
	ErrEmptyTopic = errors.New("pubsubcore: empty topic")
	// ErrInvalidPeerId is returned when a message's From field does not
	// decode to a valid PeerId.
	ErrInvalidPeerId = errors.New("pubsubcore: invalid peer id")
	// ErrMissingSubscribeFlag is returned when a subscription option omits
	// its subscribe flag.
	ErrMissingSubscribeFlag = errors.New("pubsubcore: missing subscribe flag")
	// ErrMissingTopicID is returned when a subscription option omits its
	// topic id.
	ErrMissingTopicID = errors.New("pubsubcore: missing topic id")
	// ErrEmptyControl is returned when a control block carries none of
	// ihave/iwant/graft/prune.
	ErrEmptyControl = errors.New("pubsubcore: empty control message")
)
