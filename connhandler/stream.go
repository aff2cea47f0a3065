package connhandler

import (
	"context"
	"errors"
	"io"

	"github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p-core/network"
)

var logger = log.Logger("pubsub/connhandler")

// streamSubstream adapts a raw network.Stream into the Substream
// interface Downstream needs, applying the length-prefixed varint codec
// on write.
type streamSubstream struct {
	stream       network.Stream
	maxFrameSize int
}

// NewOutboundSubstream wraps a negotiated outbound network.Stream.
func NewOutboundSubstream(s network.Stream, maxFrameSize int) Substream {
	return &streamSubstream{stream: s, maxFrameSize: maxFrameSize}
}

func (s *streamSubstream) WriteFrame(_ context.Context, payload []byte) error {
	return WriteFrame(s.stream, s.maxFrameSize, payload)
}

func (s *streamSubstream) Close() error {
	return s.stream.Close()
}

// readLoop continuously reads length-prefixed frames off an inbound
// substream, delivering each frame to deliver. An oversized frame is
// skipped; any other read error (including EOF) is passed to onErr and
// ends the loop. Meant to run in its own
// goroutine, one per inbound substream, mirroring the teacher's
// per-stream reader goroutine in handleNewStream (pubsub.go).
func readLoop(stream network.Stream, maxFrameSize int, deliver func(frame []byte), onErr func(error)) {
	for {
		frame, err := ReadFrame(stream, maxFrameSize)
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				// Soft error: the oversized frame was discarded, the stream
				// itself stays open (§4.3, "frame discarded, stream preserved").
				logger.Debugf("dropping oversized inbound frame: %s", err)
				continue
			}
			if err != io.EOF {
				logger.Debugf("inbound substream closed: %s", err)
			}
			onErr(err)
			return
		}
		deliver(frame)
	}
}
