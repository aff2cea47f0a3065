package pubsubcore

import "errors"

// Application-facing errors (§7). Decode/validation and stream-I/O errors
// are absorbed inside their own components and never reach this layer;
// these are the ones returned synchronously from the public API.
var (
	// ErrNotSubscribed is returned by Publish when the local node is not
	// subscribed to the target topic.
	ErrNotSubscribed = errors.New("pubsubcore: not subscribed to topic")

	// ErrInsufficientPeers is returned by Publish when no peer is
	// currently known to subscribe to the target topic, wrapped in
	// MessagePublishFailed.
	ErrInsufficientPeers = errors.New("pubsubcore: no peer subscribed to topic")

	// ErrMessagePublishFailed is the umbrella error of every PublishError.
	// Publish reports ErrInsufficientPeers as its cause; a framing
	// FragmentationFailed is logged while sending and is not returned to
	// the caller of Publish.
	ErrMessagePublishFailed = errors.New("pubsubcore: message publish failed")
)

// PublishError wraps a Publish failure with its cause, so callers can
// errors.Is against ErrInsufficientPeers etc. while also seeing the
// umbrella ErrMessagePublishFailed.
type PublishError struct {
	Cause error
}

func (e *PublishError) Error() string {
	return ErrMessagePublishFailed.Error() + ": " + e.Cause.Error()
}

func (e *PublishError) Unwrap() []error {
	return []error{ErrMessagePublishFailed, e.Cause}
}
