// Package pubsubcore implements the flood-routed publish/subscribe
// overlay core: a pipeline of cooperating services (connections,
// subscriptions, message-ID derivation, message cache, protocol router,
// and framing) composed by Behaviour into the application-facing
// subscribe/unsubscribe/publish API (§4.11).
//
// The host networking layer — dialing, listening, transport security,
// stream multiplexing — is an external collaborator, not implemented
// here: Behaviour consumes connection lifecycle events and negotiated
// substreams through its own methods, and asks the host to open new
// outbound substreams through OutboundSubstreamRequests.
package pubsubcore

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p-core/network"

	"github.com/libp2p/go-pubsub-core/connections"
	"github.com/libp2p/go-pubsub-core/connhandler"
	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/framing"
	"github.com/libp2p/go-pubsub-core/messagecache"
	"github.com/libp2p/go-pubsub-core/messageid"
	"github.com/libp2p/go-pubsub-core/router"
	"github.com/libp2p/go-pubsub-core/router/flood"
	"github.com/libp2p/go-pubsub-core/service"
	"github.com/libp2p/go-pubsub-core/subscriptions"
	"github.com/libp2p/go-pubsub-core/topichash"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("pubsubcore")

// ProtocolID is the stream protocol string the flood variant announces
// for negotiation (§6).
const ProtocolID = "/floodsub/1.0.0"

// Behaviour is the top-level composition root. It owns the shared,
// single-threaded pipeline state and is safe for concurrent use by
// multiple goroutines: every public method (and every connection
// handler's event delivery) takes mu, so the pipeline services
// themselves are never invoked re-entrantly, matching §5's "no lock
// required inside a single-threaded core" by making the outside of that
// core the only place a lock is needed.
type Behaviour struct {
	mu sync.Mutex

	cfg *core.Config

	connections    *service.Context[connections.In, connections.Out]
	subscriptions  *service.Context[subscriptions.In, subscriptions.Out]
	subsState      *subscriptions.Service
	messageIDs     *service.Context[messageid.In, messageid.Out]
	cache          *messagecache.Cache
	cacheHeartbeat *messagecache.Heartbeat
	router         *service.Context[router.In, router.Out]
	routerState    *flood.Router
	framer         *framing.Framing

	handlers map[core.PeerId]*connhandler.ConnHandler

	subs map[core.TopicHash]map[*Subscription]struct{}

	outboundRequests chan core.PeerId

	nextConnID uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Behaviour using the flood router and the given options.
func New(ctx context.Context, opts ...core.Option) (*Behaviour, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Hasher == nil {
		cfg.Hasher = topichash.IdentityHasher{}
	}

	bctx, cancel := context.WithCancel(ctx)

	subsState := subscriptions.New()
	routerState := flood.New()

	b := &Behaviour{
		cfg:              cfg,
		connections:      connections.NewContext(),
		subscriptions:    service.NewContext[subscriptions.In, subscriptions.Out](service.Wrap[subscriptions.In, subscriptions.Out](subsState)),
		subsState:        subsState,
		messageIDs:       messageid.NewContext(),
		cache:            messagecache.New(cfg.MessageCacheCapacity, cfg.MessageCacheTTL),
		router:           service.NewContext[router.In, router.Out](service.Wrap[router.In, router.Out](routerState)),
		routerState:      routerState,
		framer:           framing.New(cfg.MaxFrameSize),
		handlers:         make(map[core.PeerId]*connhandler.ConnHandler),
		subs:             make(map[core.TopicHash]map[*Subscription]struct{}),
		outboundRequests: make(chan core.PeerId, 32),
		ctx:              bctx,
		cancel:           cancel,
	}
	b.cacheHeartbeat = messagecache.NewHeartbeat(b.cache, cfg.HeartbeatInterval, cfg.HeartbeatInitialDelay)

	go b.heartbeatLoop()

	return b, nil
}

// Close stops the background heartbeat and the per-peer handler event
// pumps by cancelling the behaviour's context. It does not disable the
// connection handlers themselves.
func (b *Behaviour) Close() {
	b.cancel()
}

func (b *Behaviour) heartbeatLoop() {
	ticker := time.NewTicker(b.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			b.cacheHeartbeat.Poll()
			b.mu.Unlock()
		}
	}
}

// OutboundSubstreamRequests returns the channel the host glue should
// drain to learn when Behaviour wants a new outbound substream opened to
// a peer.
func (b *Behaviour) OutboundSubstreamRequests() <-chan core.PeerId {
	return b.outboundRequests
}

func (b *Behaviour) handlerFor(peer core.PeerId) *connhandler.ConnHandler {
	h, ok := b.handlers[peer]
	if !ok {
		h = connhandler.NewConnHandler(peer, nil, b.cfg.MaxFrameSize, b.cfg.ConnectionIdleTimeout, b.cfg.MaxConnectionSendRetryAttempts, b.cfg.MaxSubstreamAttempts)
		b.handlers[peer] = h
		go b.pumpHandlerEvents(peer, h)
	}
	return h
}

// pumpHandlerEvents drains one connection handler's event channel for
// its lifetime, translating FrameReceived/FrameSent/Disabled into
// pipeline activity. One goroutine per peer, mirroring the teacher's
// per-stream reader goroutines feeding a single dispatch point.
func (b *Behaviour) pumpHandlerEvents(peer core.PeerId, h *connhandler.ConnHandler) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case ev, ok := <-h.Events():
			if !ok {
				return
			}
			b.mu.Lock()
			switch ev.Kind {
			case connhandler.FrameReceived:
				b.onFrameReceived(peer, ev.Frame)
			case connhandler.FrameSent:
				// No pipeline reaction needed; the idle timer already
				// advanced inside the connection handler itself.
			case connhandler.NeedsOutboundSubstream:
				select {
				case b.outboundRequests <- peer:
				default:
					log.Debugf("outbound substream request dropped for %s: channel full", peer)
				}
			case connhandler.Disabled:
				log.Debugf("connection handler for %s disabled: %s", peer, ev.Reason)
				delete(b.handlers, peer)
			}
			b.mu.Unlock()
			if ev.Kind == connhandler.Disabled {
				return
			}
		}
	}
}

// Connected registers a new connection with the connections service,
// allocating a ConnectionId, and immediately marks it Established. The
// simplified host boundary this module consumes folds the host's
// separate "established callback" and "ConnectionEstablished" swarm
// event into one call, since nothing in this module distinguishes the
// intermediate Connecting state.
func (b *Behaviour) Connected(peer core.PeerId, dir connections.Direction, local, remote net.Addr) core.ConnectionId {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextConnID++
	id := core.ConnectionId(b.nextConnID)

	var in connections.In
	if dir == connections.Inbound {
		in = connections.In{EstablishedInbound: &connections.EstablishedInboundConnection{ID: id, Peer: peer, LocalAddr: local, RemoteAddr: remote}}
	} else {
		in = connections.In{EstablishedOutbound: &connections.EstablishedOutboundConnection{ID: id, Peer: peer, LocalAddr: local, RemoteAddr: remote}}
	}
	b.connections.DoSend(in)
	b.connections.DoSend(connections.In{Established: &connections.ConnectionEstablished{ID: id}})
	b.drainConnections()

	return id
}

// Disconnected tells the connections service a connection closed.
func (b *Behaviour) Disconnected(id core.ConnectionId) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connections.DoSend(connections.In{Closed: &connections.ConnectionClosed{ID: id}})
	b.drainConnections()
}

func (b *Behaviour) drainConnections() {
	for _, out := range service.DrainPoll(b.connections) {
		switch {
		case out.NewPeerConnected != nil:
			peer := *out.NewPeerConnected
			b.subscriptions.DoSend(subscriptions.In{NewPeerConnected: &peer})
			b.drainSubscriptions()

		case out.PeerDisconnected != nil:
			peer := *out.PeerDisconnected
			b.subscriptions.DoSend(subscriptions.In{PeerDisconnected: &peer})
			b.router.DoSend(router.In{PeerDisconnected: &peer})
			b.drainSubscriptions()
			b.drainRouter()
		}
	}
}

// HandleInboundSubstream registers a freshly negotiated inbound
// substream for peer.
func (b *Behaviour) HandleInboundSubstream(peer core.PeerId, stream network.Stream) {
	b.mu.Lock()
	h := b.handlerFor(peer)
	b.mu.Unlock()
	h.HandleInboundSubstream(stream)
}

// HandleOutboundSubstream registers a freshly negotiated outbound
// substream for peer.
func (b *Behaviour) HandleOutboundSubstream(peer core.PeerId, stream network.Stream) {
	b.mu.Lock()
	h := b.handlerFor(peer)
	b.mu.Unlock()
	h.HandleOutboundSubstream(stream)
}

// HandleUpgradeTimeout reports an outbound substream negotiation timeout
// for peer.
func (b *Behaviour) HandleUpgradeTimeout(peer core.PeerId) {
	b.mu.Lock()
	h := b.handlerFor(peer)
	b.mu.Unlock()
	h.HandleUpgradeTimeout()
}

// HandleUpgradeIOError reports an outbound substream negotiation I/O
// error for peer.
func (b *Behaviour) HandleUpgradeIOError(peer core.PeerId, err error) {
	b.mu.Lock()
	h := b.handlerFor(peer)
	b.mu.Unlock()
	h.HandleUpgradeIOError(err)
}

// onFrameReceived feeds raw inbound bytes through the framing upstream
// decoder and dispatches its output. Called with mu held.
func (b *Behaviour) onFrameReceived(src core.PeerId, bytes []byte) {
	for _, out := range b.framer.Recv(framing.ReceiveFrom(src, bytes)) {
		switch {
		case out.MessageReceived != nil:
			mr := out.MessageReceived
			b.messageIDs.DoSend(messageid.In{Message: &messageid.MessageEvent{Published: false, Src: mr.Src, Message: mr.Message}})
			b.drainMessageIDs()

		case out.SubscriptionReceived != nil:
			sr := out.SubscriptionReceived
			b.subscriptions.DoSend(subscriptions.In{PeerSubscription: &subscriptions.PeerSubscriptionRequest{Src: sr.Src, Action: sr.Action}})
			b.drainSubscriptions()

		case out.ControlReceived != nil:
			b.router.DoSend(router.In{ControlReceived: &router.ControlReceived{Src: out.ControlReceived.Src, Control: out.ControlReceived.Control}})
			b.drainRouter()
		}
	}
}

func (b *Behaviour) drainSubscriptions() {
	for _, out := range service.DrainPoll(b.subscriptions) {
		switch {
		case out.Subscribed != nil:
			b.messageIDs.DoSend(messageid.In{Subscription: &messageid.SubscriptionEvent{Subscribed: true, Topic: out.Subscribed.Topic, MessageIdFn: out.Subscribed.MessageIdFn}})
			b.router.DoSend(router.In{Subscribed: &out.Subscribed.Topic})
			b.drainMessageIDs()
			b.drainRouter()

		case out.Unsubscribed != nil:
			b.messageIDs.DoSend(messageid.In{Subscription: &messageid.SubscriptionEvent{Subscribed: false, Topic: *out.Unsubscribed}})
			b.router.DoSend(router.In{Unsubscribed: out.Unsubscribed})
			b.drainMessageIDs()
			b.drainRouter()

		case out.PeerSubscribed != nil:
			b.router.DoSend(router.In{PeerSubscribed: &router.PeerTopic{Peer: out.PeerSubscribed.Peer, Topic: out.PeerSubscribed.Topic}})
			b.drainRouter()

		case out.PeerUnsubscribed != nil:
			b.router.DoSend(router.In{PeerUnsubscribed: &router.PeerTopic{Peer: out.PeerUnsubscribed.Peer, Topic: out.PeerUnsubscribed.Topic}})
			b.drainRouter()

		case out.SendSubscriptions != nil:
			ss := out.SendSubscriptions
			actions := make([]core.SubscriptionAction, 0, len(ss.Topics))
			for _, t := range ss.Topics {
				actions = append(actions, core.SubscriptionAction{Topic: t, Subscribe: true})
			}
			b.sendTo(ss.Dest, framing.SendSubscriptionsTo(ss.Dest, actions))
		}
	}
}

func (b *Behaviour) drainMessageIDs() {
	for _, out := range service.DrainPoll(b.messageIDs) {
		if out.Published {
			if b.cache.Put(out.ID) {
				b.router.DoSend(router.In{MessagePublished: &router.MessagePublished{Message: out.Message, MessageID: out.ID}})
				b.drainRouter()
			}
			continue
		}

		// Received: gate both local delivery and onward forwarding on the
		// same dedup check, so a message arriving twice (e.g. via two
		// flood-forwarding paths) is delivered at most once.
		if b.cache.Put(out.ID) {
			b.deliverToSubscribers(&MessageEvent{Topic: out.Message.Topic, Message: out.Message, ID: out.ID, Src: out.Src, HasSrc: out.HasSrc})
			b.router.DoSend(router.In{MessageReceived: &router.MessageReceived{Src: out.Src, Message: out.Message, MessageID: out.ID}})
			b.drainRouter()
		}
	}
}

func (b *Behaviour) drainRouter() {
	for _, out := range service.DrainPoll(b.router) {
		if out.ForwardMessage == nil {
			continue
		}
		fm := out.ForwardMessage
		for _, dest := range fm.Dest {
			b.sendTo(dest, framing.ForwardMessageTo(dest, fm.Message))
		}
	}
}

// sendTo feeds a downstream framing event and relays every resulting
// SendFrame to the destination's connection handler, if one currently
// exists.
func (b *Behaviour) sendTo(dest core.PeerId, ev framing.In) {
	for _, out := range b.framer.Recv(ev) {
		switch {
		case out.SendFrame != nil:
			if h, ok := b.handlers[dest]; ok {
				h.Send(out.SendFrame.Bytes)
			} else {
				log.Debugf("dropping frame for %s: no connection handler", dest)
			}
		case out.FragmentationFailed != nil:
			log.Debugf("fragmentation failed sending to %s: %s", dest, out.FragmentationFailed.Err)
		}
	}
}

func (b *Behaviour) deliverToSubscribers(ev *MessageEvent) {
	for sub := range b.subs[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			log.Debugf("dropping message event for slow subscriber on %s", ev.Topic)
		}
	}
}
