package connections

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/service"
)

func drive(t *testing.T, s *Service, evs ...In) []Out {
	t.Helper()
	ctx := service.NewContext[In, Out](service.Wrap[In, Out](s))
	for _, ev := range evs {
		ctx.DoSend(ev)
	}
	return service.DrainPoll(ctx)
}

var localAddr net.Addr = &net.TCPAddr{}

func TestNewPeerConnectedFiresOnlyOnFirstActiveConnection(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")

	out := drive(t, s,
		In{EstablishedInbound: &EstablishedInboundConnection{ID: 1, Peer: peer, LocalAddr: localAddr, RemoteAddr: localAddr}},
		In{Established: &ConnectionEstablished{ID: 1}},
	)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].NewPeerConnected)

	// A second connection to the same peer should not re-fire
	// NewPeerConnected.
	out = drive(t, s,
		In{EstablishedOutbound: &EstablishedOutboundConnection{ID: 2, Peer: peer, LocalAddr: localAddr, RemoteAddr: localAddr}},
		In{Established: &ConnectionEstablished{ID: 2}},
	)
	require.Empty(t, out, "second connection to an already-active peer should emit nothing")
	require.Equal(t, 1, s.ActivePeersCount())
	require.Equal(t, 2, s.PeerConnectionsCount(peer))
}

func TestPeerDisconnectedFiresOnlyOnLastConnectionClosed(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")
	drive(t, s,
		In{EstablishedInbound: &EstablishedInboundConnection{ID: 1, Peer: peer, LocalAddr: localAddr, RemoteAddr: localAddr}},
		In{Established: &ConnectionEstablished{ID: 1}},
		In{EstablishedOutbound: &EstablishedOutboundConnection{ID: 2, Peer: peer, LocalAddr: localAddr, RemoteAddr: localAddr}},
		In{Established: &ConnectionEstablished{ID: 2}},
	)

	out := drive(t, s, In{Closed: &ConnectionClosed{ID: 1}})
	require.Empty(t, out, "closing one of two active connections should not emit PeerDisconnected")

	out = drive(t, s, In{Closed: &ConnectionClosed{ID: 2}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].PeerDisconnected)
	require.Equal(t, 0, s.ActivePeersCount())
}

func TestClosedUnknownConnectionIsIgnored(t *testing.T) {
	s := New()
	out := drive(t, s, In{Closed: &ConnectionClosed{ID: 999}})
	require.Empty(t, out, "closing an unknown connection id should be a no-op")
}

func TestAddressChangeUpdatesTrackedConnection(t *testing.T) {
	s := New()
	peer := core.PeerId("p1")
	drive(t, s, In{EstablishedInbound: &EstablishedInboundConnection{ID: 1, Peer: peer, LocalAddr: localAddr, RemoteAddr: localAddr}})

	newAddr := &net.TCPAddr{Port: 4242}
	out := drive(t, s, In{AddressChange: &ConnectionAddressChange{ID: 1, RemoteAddr: newAddr}})
	require.Empty(t, out, "an address change carries no peer-lifecycle signal")
	require.Equal(t, newAddr, s.connections[1].RemoteAddr)
}

func TestDialAndListenFailuresAreNoOps(t *testing.T) {
	s := New()
	out := drive(t, s,
		In{DialFailure: &DialFailure{Peer: core.PeerId("p1")}},
		In{ListenFailure: &ListenFailure{LocalAddr: localAddr}},
	)
	require.Empty(t, out, "dial/listen failures have no tracked connection to act on")
}
