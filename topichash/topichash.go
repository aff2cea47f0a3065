// Package topichash implements the topic hashing schemes used to derive the
// opaque, orderable TopicHash carried on the wire (§6).
package topichash

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/libp2p/go-pubsub-core/pb"
)

// TopicHash is an opaque, orderable, hashable string derived from a topic
// descriptor. It is the form carried verbatim in the wire frame's topic
// field.
type TopicHash string

// String returns the raw hash string.
func (h TopicHash) String() string { return string(h) }

// Hasher derives a TopicHash from a topic name.
type Hasher interface {
	Hash(topic string) TopicHash
}

// IdentityHasher uses the raw topic name as its own hash.
type IdentityHasher struct{}

func (IdentityHasher) Hash(topic string) TopicHash { return TopicHash(topic) }

// Sha256Hasher hashes the canonical protobuf encoding of a TopicDescriptor
// and base64-encodes the digest.
type Sha256Hasher struct{}

func (Sha256Hasher) Hash(topic string) TopicHash {
	name := topic
	td := pb.TopicDescriptor{Name: &name}
	encoded, err := td.Marshal()
	if err != nil {
		// TopicDescriptor marshaling cannot fail: it only ever contains an
		// optional string field.
		panic(err)
	}
	sum := sha256.Sum256(encoded)
	return TopicHash(base64.StdEncoding.EncodeToString(sum[:]))
}
