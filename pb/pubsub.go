// Package pb defines the wire types exchanged between pubsub peers.
//
// The message structs and their Marshal/Unmarshal/Size methods are hand
// written in the style protoc-gen-gogofaster would produce, using the
// gogo/protobuf runtime's varint helpers, since no .proto -> .pb.go code
// generation step runs as part of this module.
package pb

import (
	"errors"
	"fmt"

	"github.com/gogo/protobuf/proto"
)

// ErrUnknownWireType is returned when a field tag carries a wire type this
// decoder does not know how to skip or parse.
var ErrUnknownWireType = errors.New("pb: unknown wire type")

// ErrTruncated is returned when a buffer ends in the middle of a field.
var ErrTruncated = errors.New("pb: truncated message")

const (
	wireVarint = 0
	wireBytes  = 2
)

func appendTag(buf []byte, field, wire int) []byte {
	return append(buf, proto.EncodeVarint(uint64(field)<<3|uint64(wire))...)
}

func appendVarint(buf []byte, v uint64) []byte {
	return append(buf, proto.EncodeVarint(v)...)
}

func appendBytesField(buf []byte, field int, b []byte) []byte {
	buf = appendTag(buf, field, wireBytes)
	buf = appendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendStringField(buf []byte, field int, s string) []byte {
	return appendBytesField(buf, field, []byte(s))
}

func appendVarintField(buf []byte, field int, v uint64) []byte {
	buf = appendTag(buf, field, wireVarint)
	return appendVarint(buf, v)
}

func sizeTag(field int) int {
	return proto.SizeVarint(uint64(field) << 3)
}

func sizeBytesField(field int, n int) int {
	return sizeTag(field) + proto.SizeVarint(uint64(n)) + n
}

func sizeVarintField(field int, v uint64) int {
	return sizeTag(field) + proto.SizeVarint(v)
}

// field is one decoded (fieldNumber, wireType, raw-payload) triple.
type field struct {
	num  int
	wire int
	vint uint64
	buf  []byte
}

func parseFields(data []byte) ([]field, error) {
	var out []field
	for len(data) > 0 {
		tag, n := proto.DecodeVarint(data)
		if n == 0 {
			return nil, ErrTruncated
		}
		data = data[n:]

		num := int(tag >> 3)
		wire := int(tag & 7)

		switch wire {
		case wireVarint:
			v, n := proto.DecodeVarint(data)
			if n == 0 {
				return nil, ErrTruncated
			}
			data = data[n:]
			out = append(out, field{num: num, wire: wire, vint: v})
		case wireBytes:
			l, n := proto.DecodeVarint(data)
			if n == 0 {
				return nil, ErrTruncated
			}
			data = data[n:]
			if uint64(len(data)) < l {
				return nil, ErrTruncated
			}
			out = append(out, field{num: num, wire: wire, buf: data[:l]})
			data = data[l:]
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownWireType, wire)
		}
	}
	return out, nil
}

// Frame is the top level message exchanged between two pubsub peers.
//
// On the wire it is preceded by an unsigned varint length prefix that is not
// part of the marshaled payload itself.
type Frame struct {
	Subscriptions []*SubOpt
	Publish       []*Message
	Control       *Control
}

// SubOpt announces a single subscribe/unsubscribe action for a topic.
type SubOpt struct {
	Subscribe *bool
	TopicID   *string
}

func (m *SubOpt) GetSubscribe() bool {
	if m != nil && m.Subscribe != nil {
		return *m.Subscribe
	}
	return false
}

func (m *SubOpt) GetTopicid() string {
	if m != nil && m.TopicID != nil {
		return *m.TopicID
	}
	return ""
}

// Message carries a single published item of application data.
type Message struct {
	From      []byte
	Data      []byte
	Seqno     []byte
	Topic     *string
	Signature []byte
	Key       []byte
}

func (m *Message) GetFrom() []byte {
	if m != nil {
		return m.From
	}
	return nil
}

func (m *Message) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

func (m *Message) GetSeqno() []byte {
	if m != nil {
		return m.Seqno
	}
	return nil
}

func (m *Message) GetTopic() string {
	if m != nil && m.Topic != nil {
		return *m.Topic
	}
	return ""
}

func (m *Message) GetSignature() []byte {
	if m != nil {
		return m.Signature
	}
	return nil
}

func (m *Message) GetKey() []byte {
	if m != nil {
		return m.Key
	}
	return nil
}

// Control bundles the flood-router-agnostic mesh control primitives.
//
// The flood variant parses but otherwise ignores these; they are reserved
// for mesh/gossip routers built on top of the same framing service.
type Control struct {
	Ihave []*ControlIHave
	Iwant []*ControlIWant
	Graft []*ControlGraft
	Prune []*ControlPrune
}

// IsEmpty reports whether none of the four control slices carry anything,
// per the EmptyControl validation rule in §7.
func (m *Control) IsEmpty() bool {
	return m == nil || (len(m.Ihave) == 0 && len(m.Iwant) == 0 && len(m.Graft) == 0 && len(m.Prune) == 0)
}

type ControlIHave struct {
	TopicID    *string
	MessageIDs [][]byte
}

func (m *ControlIHave) GetTopicid() string {
	if m != nil && m.TopicID != nil {
		return *m.TopicID
	}
	return ""
}

type ControlIWant struct {
	MessageIDs [][]byte
}

type ControlGraft struct {
	TopicID *string
}

func (m *ControlGraft) GetTopicid() string {
	if m != nil && m.TopicID != nil {
		return *m.TopicID
	}
	return ""
}

type ControlPrune struct {
	TopicID *string
	Peers   []*PeerInfo
	Backoff *uint64
}

func (m *ControlPrune) GetTopicid() string {
	if m != nil && m.TopicID != nil {
		return *m.TopicID
	}
	return ""
}

// PeerInfo carries peer-exchange hints attached to a Prune control message.
type PeerInfo struct {
	PeerID           []byte
	SignedPeerRecord []byte
}

// TopicDescriptor is the canonical, hashable encoding of a topic used by the
// sha256 topic-hashing scheme (see topichash.Sha256Hasher).
type TopicDescriptor struct {
	Name *string
}

func (m *TopicDescriptor) GetName() string {
	if m != nil && m.Name != nil {
		return *m.Name
	}
	return ""
}

const (
	frameFieldSubscriptions = 1
	frameFieldPublish       = 2
	frameFieldControl       = 3

	subOptFieldSubscribe = 1
	subOptFieldTopicID   = 2

	messageFieldFrom      = 1
	messageFieldData      = 2
	messageFieldSeqno     = 3
	messageFieldTopic     = 4
	messageFieldSignature = 5
	messageFieldKey       = 6

	controlFieldIhave = 1
	controlFieldIwant = 2
	controlFieldGraft = 3
	controlFieldPrune = 4

	ihaveFieldTopicID    = 1
	ihaveFieldMessageIDs = 2

	iwantFieldMessageIDs = 1

	graftFieldTopicID = 1

	pruneFieldTopicID = 1
	pruneFieldPeers   = 2
	pruneFieldBackoff = 3

	peerInfoFieldPeerID           = 1
	peerInfoFieldSignedPeerRecord = 2

	topicDescriptorFieldName = 1
)

// Marshal encodes the frame into its protobuf wire representation. It does
// not add the length-prefix varint; that is the codec's responsibility.
func (m *Frame) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	for _, s := range m.Subscriptions {
		b, err := s.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, frameFieldSubscriptions, b)
	}
	for _, pub := range m.Publish {
		b, err := pub.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, frameFieldPublish, b)
	}
	if m.Control != nil {
		b, err := m.Control.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, frameFieldControl, b)
	}
	return buf, nil
}

// Size returns the marshaled size in bytes, used to budget fragmentation.
func (m *Frame) Size() int {
	n := 0
	for _, s := range m.Subscriptions {
		n += sizeBytesField(frameFieldSubscriptions, s.Size())
	}
	for _, pub := range m.Publish {
		n += sizeBytesField(frameFieldPublish, pub.Size())
	}
	if m.Control != nil {
		n += sizeBytesField(frameFieldControl, m.Control.Size())
	}
	return n
}

// Unmarshal decodes a Frame from its protobuf wire representation.
func (m *Frame) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = Frame{}
	for _, f := range fields {
		switch f.num {
		case frameFieldSubscriptions:
			s := &SubOpt{}
			if err := s.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Subscriptions = append(m.Subscriptions, s)
		case frameFieldPublish:
			msg := &Message{}
			if err := msg.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Publish = append(m.Publish, msg)
		case frameFieldControl:
			c := &Control{}
			if err := c.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Control = c
		}
	}
	return nil
}

func (m *SubOpt) Size() int {
	n := 0
	if m.Subscribe != nil {
		n += sizeVarintField(subOptFieldSubscribe, 1)
	}
	if m.TopicID != nil {
		n += sizeBytesField(subOptFieldTopicID, len(*m.TopicID))
	}
	return n
}

func (m *SubOpt) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if m.Subscribe != nil {
		v := uint64(0)
		if *m.Subscribe {
			v = 1
		}
		buf = appendVarintField(buf, subOptFieldSubscribe, v)
	}
	if m.TopicID != nil {
		buf = appendStringField(buf, subOptFieldTopicID, *m.TopicID)
	}
	return buf, nil
}

func (m *SubOpt) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = SubOpt{}
	for _, f := range fields {
		switch f.num {
		case subOptFieldSubscribe:
			b := f.vint != 0
			m.Subscribe = &b
		case subOptFieldTopicID:
			s := string(f.buf)
			m.TopicID = &s
		}
	}
	return nil
}

func (m *Message) Size() int {
	n := 0
	if len(m.From) > 0 {
		n += sizeBytesField(messageFieldFrom, len(m.From))
	}
	if len(m.Data) > 0 {
		n += sizeBytesField(messageFieldData, len(m.Data))
	}
	if len(m.Seqno) > 0 {
		n += sizeBytesField(messageFieldSeqno, len(m.Seqno))
	}
	if m.Topic != nil {
		n += sizeBytesField(messageFieldTopic, len(*m.Topic))
	}
	if len(m.Signature) > 0 {
		n += sizeBytesField(messageFieldSignature, len(m.Signature))
	}
	if len(m.Key) > 0 {
		n += sizeBytesField(messageFieldKey, len(m.Key))
	}
	return n
}

func (m *Message) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if len(m.From) > 0 {
		buf = appendBytesField(buf, messageFieldFrom, m.From)
	}
	if len(m.Data) > 0 {
		buf = appendBytesField(buf, messageFieldData, m.Data)
	}
	if len(m.Seqno) > 0 {
		buf = appendBytesField(buf, messageFieldSeqno, m.Seqno)
	}
	if m.Topic != nil {
		buf = appendStringField(buf, messageFieldTopic, *m.Topic)
	}
	if len(m.Signature) > 0 {
		buf = appendBytesField(buf, messageFieldSignature, m.Signature)
	}
	if len(m.Key) > 0 {
		buf = appendBytesField(buf, messageFieldKey, m.Key)
	}
	return buf, nil
}

func (m *Message) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = Message{}
	for _, f := range fields {
		switch f.num {
		case messageFieldFrom:
			if len(f.buf) > 0 {
				m.From = append([]byte(nil), f.buf...)
			}
		case messageFieldData:
			if len(f.buf) > 0 {
				m.Data = append([]byte(nil), f.buf...)
			}
		case messageFieldSeqno:
			if len(f.buf) > 0 {
				m.Seqno = append([]byte(nil), f.buf...)
			}
		case messageFieldTopic:
			s := string(f.buf)
			m.Topic = &s
		case messageFieldSignature:
			if len(f.buf) > 0 {
				m.Signature = append([]byte(nil), f.buf...)
			}
		case messageFieldKey:
			if len(f.buf) > 0 {
				m.Key = append([]byte(nil), f.buf...)
			}
		}
	}
	return nil
}

func (m *Control) Size() int {
	n := 0
	for _, v := range m.Ihave {
		n += sizeBytesField(controlFieldIhave, v.Size())
	}
	for _, v := range m.Iwant {
		n += sizeBytesField(controlFieldIwant, v.Size())
	}
	for _, v := range m.Graft {
		n += sizeBytesField(controlFieldGraft, v.Size())
	}
	for _, v := range m.Prune {
		n += sizeBytesField(controlFieldPrune, v.Size())
	}
	return n
}

func (m *Control) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	for _, v := range m.Ihave {
		b, err := v.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, controlFieldIhave, b)
	}
	for _, v := range m.Iwant {
		b, err := v.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, controlFieldIwant, b)
	}
	for _, v := range m.Graft {
		b, err := v.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, controlFieldGraft, b)
	}
	for _, v := range m.Prune {
		b, err := v.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, controlFieldPrune, b)
	}
	return buf, nil
}

func (m *Control) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = Control{}
	for _, f := range fields {
		switch f.num {
		case controlFieldIhave:
			v := &ControlIHave{}
			if err := v.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Ihave = append(m.Ihave, v)
		case controlFieldIwant:
			v := &ControlIWant{}
			if err := v.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Iwant = append(m.Iwant, v)
		case controlFieldGraft:
			v := &ControlGraft{}
			if err := v.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Graft = append(m.Graft, v)
		case controlFieldPrune:
			v := &ControlPrune{}
			if err := v.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Prune = append(m.Prune, v)
		}
	}
	return nil
}

func (m *ControlIHave) Size() int {
	n := 0
	if m.TopicID != nil {
		n += sizeBytesField(ihaveFieldTopicID, len(*m.TopicID))
	}
	for _, id := range m.MessageIDs {
		n += sizeBytesField(ihaveFieldMessageIDs, len(id))
	}
	return n
}

func (m *ControlIHave) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if m.TopicID != nil {
		buf = appendStringField(buf, ihaveFieldTopicID, *m.TopicID)
	}
	for _, id := range m.MessageIDs {
		buf = appendBytesField(buf, ihaveFieldMessageIDs, id)
	}
	return buf, nil
}

func (m *ControlIHave) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = ControlIHave{}
	for _, f := range fields {
		switch f.num {
		case ihaveFieldTopicID:
			s := string(f.buf)
			m.TopicID = &s
		case ihaveFieldMessageIDs:
			m.MessageIDs = append(m.MessageIDs, append([]byte(nil), f.buf...))
		}
	}
	return nil
}

func (m *ControlIWant) Size() int {
	n := 0
	for _, id := range m.MessageIDs {
		n += sizeBytesField(iwantFieldMessageIDs, len(id))
	}
	return n
}

func (m *ControlIWant) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	for _, id := range m.MessageIDs {
		buf = appendBytesField(buf, iwantFieldMessageIDs, id)
	}
	return buf, nil
}

func (m *ControlIWant) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = ControlIWant{}
	for _, f := range fields {
		if f.num == iwantFieldMessageIDs {
			m.MessageIDs = append(m.MessageIDs, append([]byte(nil), f.buf...))
		}
	}
	return nil
}

func (m *ControlGraft) Size() int {
	n := 0
	if m.TopicID != nil {
		n += sizeBytesField(graftFieldTopicID, len(*m.TopicID))
	}
	return n
}

func (m *ControlGraft) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if m.TopicID != nil {
		buf = appendStringField(buf, graftFieldTopicID, *m.TopicID)
	}
	return buf, nil
}

func (m *ControlGraft) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = ControlGraft{}
	for _, f := range fields {
		if f.num == graftFieldTopicID {
			s := string(f.buf)
			m.TopicID = &s
		}
	}
	return nil
}

func (m *ControlPrune) Size() int {
	n := 0
	if m.TopicID != nil {
		n += sizeBytesField(pruneFieldTopicID, len(*m.TopicID))
	}
	for _, p := range m.Peers {
		n += sizeBytesField(pruneFieldPeers, p.Size())
	}
	if m.Backoff != nil {
		n += sizeVarintField(pruneFieldBackoff, *m.Backoff)
	}
	return n
}

func (m *ControlPrune) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if m.TopicID != nil {
		buf = appendStringField(buf, pruneFieldTopicID, *m.TopicID)
	}
	for _, p := range m.Peers {
		b, err := p.Marshal()
		if err != nil {
			return nil, err
		}
		buf = appendBytesField(buf, pruneFieldPeers, b)
	}
	if m.Backoff != nil {
		buf = appendVarintField(buf, pruneFieldBackoff, *m.Backoff)
	}
	return buf, nil
}

func (m *ControlPrune) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = ControlPrune{}
	for _, f := range fields {
		switch f.num {
		case pruneFieldTopicID:
			s := string(f.buf)
			m.TopicID = &s
		case pruneFieldPeers:
			p := &PeerInfo{}
			if err := p.Unmarshal(f.buf); err != nil {
				return err
			}
			m.Peers = append(m.Peers, p)
		case pruneFieldBackoff:
			v := f.vint
			m.Backoff = &v
		}
	}
	return nil
}

func (m *PeerInfo) Size() int {
	n := 0
	if len(m.PeerID) > 0 {
		n += sizeBytesField(peerInfoFieldPeerID, len(m.PeerID))
	}
	if len(m.SignedPeerRecord) > 0 {
		n += sizeBytesField(peerInfoFieldSignedPeerRecord, len(m.SignedPeerRecord))
	}
	return n
}

func (m *PeerInfo) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if len(m.PeerID) > 0 {
		buf = appendBytesField(buf, peerInfoFieldPeerID, m.PeerID)
	}
	if len(m.SignedPeerRecord) > 0 {
		buf = appendBytesField(buf, peerInfoFieldSignedPeerRecord, m.SignedPeerRecord)
	}
	return buf, nil
}

func (m *PeerInfo) Unmarshal(data []byte) error {
	fields, err := parseFields(data)
	if err != nil {
		return err
	}
	*m = PeerInfo{}
	for _, f := range fields {
		switch f.num {
		case peerInfoFieldPeerID:
			m.PeerID = append([]byte(nil), f.buf...)
		case peerInfoFieldSignedPeerRecord:
			m.SignedPeerRecord = append([]byte(nil), f.buf...)
		}
	}
	return nil
}

func (m *TopicDescriptor) Size() int {
	n := 0
	if m.Name != nil {
		n += sizeBytesField(topicDescriptorFieldName, len(*m.Name))
	}
	return n
}

// Marshal encodes the topic descriptor, used by the sha256 topic-hash
// scheme to produce a canonical byte string to hash.
func (m *TopicDescriptor) Marshal() ([]byte, error) {
	buf := make([]byte, 0, m.Size())
	if m.Name != nil {
		buf = appendStringField(buf, topicDescriptorFieldName, *m.Name)
	}
	return buf, nil
}
