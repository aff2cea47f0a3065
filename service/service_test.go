package service

import (
	"container/list"
	"testing"

	"github.com/stretchr/testify/require"
)

// echoHandler is a minimal EventHandler: it emits back whatever In it is
// given, twice, to exercise Wrap/Context/DrainPoll end to end.
type echoHandler struct{ calls int }

func (h *echoHandler) OnEvent(out *Outbox[int], ev int) {
	h.calls++
	out.Emit(ev)
	out.Emit(ev)
}

func TestWrapDeliversEventsInOrderOnNextPoll(t *testing.T) {
	h := &echoHandler{}
	ctx := NewContext[int, int](Wrap[int, int](h))

	ctx.DoSend(1)
	ctx.DoSend(2)

	got := DrainPoll(ctx)
	require.Equal(t, []int{1, 1, 2, 2}, got)
	require.Equal(t, 2, h.calls)
}

func TestContextPollReturnsPendingWhenEmpty(t *testing.T) {
	ctx := NewContext[int, int](Wrap[int, int](&echoHandler{}))
	_, ok := ctx.Poll()
	require.False(t, ok, "Poll on an empty context should report nothing ready")
}

// suspendingService models a Service whose Poll can resume work across
// multiple calls without a new input event, the shape EventHandler cannot
// express on its own.
type suspendingService struct {
	pending []int
}

func (s *suspendingService) OnEvent(out *Outbox[int], ev int) {
	s.pending = append(s.pending, ev, ev*10)
}

func (s *suspendingService) Poll(in *Inbox[int], out *Outbox[int]) (int, bool) {
	for {
		ev, ok := in.PopNext()
		if !ok {
			break
		}
		s.OnEvent(out, ev)
	}
	if len(s.pending) == 0 {
		var zero int
		return zero, false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return next, true
}

func TestServicePollReadyShortCircuitsOutbox(t *testing.T) {
	ctx := NewContext[int, int](&suspendingService{})
	ctx.DoSend(3)

	got := DrainPoll(ctx)
	require.Equal(t, []int{3, 30}, got)
}

func TestEmitBatchPreservesOrder(t *testing.T) {
	ob := Outbox[int]{q: list.New()}
	ob.EmitBatch([]int{4, 5, 6})

	var got []int
	for {
		e := ob.q.Front()
		if e == nil {
			break
		}
		ob.q.Remove(e)
		got = append(got, e.Value.(int))
	}
	require.Equal(t, []int{4, 5, 6}, got)
}
