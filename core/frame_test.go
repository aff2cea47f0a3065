package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyFrameIsInvalid(t *testing.T) {
	f := &Frame{}
	require.ErrorIs(t, f.Validate(), ErrEmptyFrame)
}

func TestFrameWithOnlyAMessageIsValid(t *testing.T) {
	f := &Frame{Messages: []*Message{{Topic: "news"}}}
	require.NoError(t, f.Validate())
}

func TestFrameWithOnlyASubscriptionIsValid(t *testing.T) {
	f := &Frame{Subscriptions: []SubscriptionAction{{Topic: "news", Subscribe: true}}}
	require.NoError(t, f.Validate())
}

func TestFrameWithNonEmptyControlIsValid(t *testing.T) {
	f := &Frame{Control: &ControlMessage{Graft: []Graft{{Topic: "news"}}}}
	require.NoError(t, f.Validate())
}

func TestFrameWithEmptyControlOnlyIsInvalid(t *testing.T) {
	f := &Frame{Control: &ControlMessage{}}
	require.ErrorIs(t, f.Validate(), ErrEmptyFrame)
}
