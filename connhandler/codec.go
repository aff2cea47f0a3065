// Package connhandler implements the per-connection substream handling
// layer (§4.3, §4.4): a length-prefixed varint wire codec, a send-side
// stream state machine (Downstream), and the connection handler that owns
// the inbound/outbound substreams and exposes keep-alive/backoff behaviour
// to the swarm.
package connhandler

import (
	"errors"
	"io"

	"github.com/multiformats/go-varint"
)

// ErrFrameTooLarge is returned when a length-prefixed frame would exceed
// maxFrameSize on read or write (§7 FrameTooLarge).
var ErrFrameTooLarge = errors.New("connhandler: frame exceeds maximum size")

// ReadFrame reads one length-prefixed frame from r, rejecting any frame
// whose declared length exceeds maxFrameSize.
func ReadFrame(r io.Reader, maxFrameSize int) ([]byte, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length > uint64(maxFrameSize) {
		// Drain the oversized body so the stream stays aligned on the next
		// frame boundary for the caller's next ReadFrame call.
		if _, discardErr := io.CopyN(io.Discard, r, int64(length)); discardErr != nil {
			return nil, discardErr
		}
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes one length-prefixed frame to w, rejecting frames
// larger than maxFrameSize before anything is written.
func WriteFrame(w io.Writer, maxFrameSize int, payload []byte) error {
	if len(payload) > maxFrameSize {
		return ErrFrameTooLarge
	}
	if _, err := varint.WriteUvarint(w, uint64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
