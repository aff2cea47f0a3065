package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type passThrough struct{}

func (passThrough) OnEvent(out *Outbox[string], ev string) { out.Emit(ev) }

func TestMuxDrainsPriorityBeforeOther(t *testing.T) {
	priority := NewContext[string, string](Wrap[string, string](passThrough{}))
	other := NewContext[int, int](Wrap[int, int](passThrough2{}))

	mux := NewMux[string, string, int, int, string](
		priority, other,
		func(s string) string { return "p:" + s },
		func(i int) string { return "o:" + string(rune('0'+i)) },
	)

	other.DoSend(1)
	priority.DoSend("a")

	got := mux.DrainPoll()
	require.Equal(t, []string{"p:a", "o:1"}, got, "priority side should drain fully before the other side")
}

type passThrough2 struct{}

func (passThrough2) OnEvent(out *Outbox[int], ev int) { out.Emit(ev) }

func TestMuxPollReturnsFalseWhenBothSidesEmpty(t *testing.T) {
	priority := NewContext[string, string](Wrap[string, string](passThrough{}))
	other := NewContext[int, int](Wrap[int, int](passThrough2{}))
	mux := NewMux[string, string, int, int, string](priority, other,
		func(s string) string { return s },
		func(i int) string { return string(rune('0' + i)) },
	)

	_, ok := mux.Poll()
	require.False(t, ok)
}
