package connhandler

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello pubsub")

	require.NoError(t, WriteFrame(&buf, 1024, payload))
	got, err := ReadFrame(&buf, 1024)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteFrameRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, 4, []byte("too long"))
	require.ErrorIs(t, err, ErrFrameTooLarge)
	require.Equal(t, 0, buf.Len(), "WriteFrame should write nothing once the size check fails")
}

func TestReadFrameRejectsOversizeDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	// Write a frame under a generous limit, then read it back under a
	// limit too small for its declared length.
	require.NoError(t, WriteFrame(&buf, 1024, []byte("0123456789")))
	_, err := ReadFrame(&buf, 4)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrameExactlyAtMaxFrameSizeBoundary(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte{0x42}, 16)

	require.NoError(t, WriteFrame(&buf, len(payload), payload))
	got, err := ReadFrame(&buf, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadFrameDiscardsOversizedBodyPreservingStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 1024, []byte("0123456789")))  // oversized under limit 4
	require.NoError(t, WriteFrame(&buf, 1024, []byte("next frame"))) // should still be readable

	_, err := ReadFrame(&buf, 4)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	got, err := ReadFrame(&buf, 1024)
	require.NoError(t, err)
	require.Equal(t, []byte("next frame"), got, "stream should stay aligned on the next frame after an oversized one is discarded")
}

func TestReadFrameOnTruncatedStreamReturnsError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 1024, []byte("0123456789")))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])
	_, err := ReadFrame(truncated, 1024)
	require.True(t, err == io.ErrUnexpectedEOF || err == io.EOF, "ReadFrame on truncated stream err = %v, want an EOF-class error", err)
}
