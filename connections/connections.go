// Package connections implements the connections service (§4.6): it tracks
// per-peer, per-connection state and emits NewPeerConnected/PeerDisconnected
// edges used by the subscriptions service and the router.
package connections

import (
	"net"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

// Direction is the direction a connection was dialed/accepted in.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// State is a connection's lifecycle state.
type State int

const (
	Connecting State = iota
	Established
)

// Connection is the connections service's record for one physical
// connection.
type Connection struct {
	ID         core.ConnectionId
	Peer       core.PeerId
	Direction  Direction
	State      State
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// In is the connections service's input event type: host/swarm
// notifications.
type In struct {
	EstablishedInbound  *EstablishedInboundConnection
	EstablishedOutbound *EstablishedOutboundConnection
	Established         *ConnectionEstablished
	Closed              *ConnectionClosed
	AddressChange       *ConnectionAddressChange
	DialFailure         *DialFailure
	ListenFailure       *ListenFailure
}

type EstablishedInboundConnection struct {
	ID         core.ConnectionId
	Peer       core.PeerId
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

type EstablishedOutboundConnection struct {
	ID         core.ConnectionId
	Peer       core.PeerId
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

type ConnectionEstablished struct {
	ID core.ConnectionId
}

type ConnectionClosed struct {
	ID core.ConnectionId
}

type ConnectionAddressChange struct {
	ID         core.ConnectionId
	RemoteAddr net.Addr
}

type DialFailure struct {
	Peer core.PeerId
}

type ListenFailure struct {
	LocalAddr net.Addr
}

// Out is the connections service's output event type.
type Out struct {
	NewPeerConnected *core.PeerId
	PeerDisconnected *core.PeerId
}

// Service implements the §4.6 connections service.
type Service struct {
	connections           map[core.ConnectionId]*Connection
	peerConnections       map[core.PeerId][]core.ConnectionId
	peerActiveConnections map[core.PeerId][]core.ConnectionId
}

// New creates an empty connections service.
func New() *Service {
	return &Service{
		connections:           make(map[core.ConnectionId]*Connection),
		peerConnections:       make(map[core.PeerId][]core.ConnectionId),
		peerActiveConnections: make(map[core.PeerId][]core.ConnectionId),
	}
}

func removeID(ids []core.ConnectionId, id core.ConnectionId) []core.ConnectionId {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *Service) insert(id core.ConnectionId, peer core.PeerId, dir Direction, local, remote net.Addr) {
	s.connections[id] = &Connection{
		ID:         id,
		Peer:       peer,
		Direction:  dir,
		State:      Connecting,
		LocalAddr:  local,
		RemoteAddr: remote,
	}
	s.peerConnections[peer] = append(s.peerConnections[peer], id)
}

// OnEvent implements service.EventHandler.
func (s *Service) OnEvent(out *service.Outbox[Out], ev In) {
	switch {
	case ev.EstablishedInbound != nil:
		e := ev.EstablishedInbound
		s.insert(e.ID, e.Peer, Inbound, e.LocalAddr, e.RemoteAddr)

	case ev.EstablishedOutbound != nil:
		e := ev.EstablishedOutbound
		s.insert(e.ID, e.Peer, Outbound, e.LocalAddr, e.RemoteAddr)

	case ev.Established != nil:
		conn, ok := s.connections[ev.Established.ID]
		if !ok {
			return
		}
		conn.State = Established

		active := s.peerActiveConnections[conn.Peer]
		wasZero := len(active) == 0
		s.peerActiveConnections[conn.Peer] = append(active, conn.ID)

		if wasZero {
			p := conn.Peer
			out.Emit(Out{NewPeerConnected: &p})
		}

	case ev.Closed != nil:
		conn, ok := s.connections[ev.Closed.ID]
		if !ok {
			return
		}
		delete(s.connections, conn.ID)
		s.peerConnections[conn.Peer] = removeID(s.peerConnections[conn.Peer], conn.ID)
		if len(s.peerConnections[conn.Peer]) == 0 {
			delete(s.peerConnections, conn.Peer)
		}

		active := removeID(s.peerActiveConnections[conn.Peer], conn.ID)
		if len(active) == 0 {
			delete(s.peerActiveConnections, conn.Peer)
			p := conn.Peer
			out.Emit(Out{PeerDisconnected: &p})
		} else {
			s.peerActiveConnections[conn.Peer] = active
		}

	case ev.AddressChange != nil:
		if conn, ok := s.connections[ev.AddressChange.ID]; ok {
			conn.RemoteAddr = ev.AddressChange.RemoteAddr
		}

	case ev.DialFailure != nil, ev.ListenFailure != nil:
		// No bookkeeping: no Connection record exists for a failed
		// dial/listen attempt.
	}
}

// ActivePeers returns the peers with at least one Established connection.
func (s *Service) ActivePeers() []core.PeerId {
	peers := make([]core.PeerId, 0, len(s.peerActiveConnections))
	for p := range s.peerActiveConnections {
		peers = append(peers, p)
	}
	return peers
}

// ActivePeersCount returns the number of peers with at least one
// Established connection.
func (s *Service) ActivePeersCount() int {
	return len(s.peerActiveConnections)
}

// PeerConnectionsCount returns the number of (any-state) connections
// tracked for a peer.
func (s *Service) PeerConnectionsCount(peer core.PeerId) int {
	return len(s.peerConnections[peer])
}

// NewContext wraps the service in a buffered context.
func NewContext() *service.Context[In, Out] {
	return service.NewContext[In, Out](service.Wrap[In, Out](New()))
}
