// Package service implements the uniform service/mailbox abstraction used
// throughout the pubsub core pipeline (see §4.1 of the design).
//
// A Service is a stateful component with an input event type and an output
// event type. It can either be event-driven only (EventHandler) or hold
// state that advances across polls (Service). Both shapes are driven by a
// Context, which owns the inbox/outbox FIFO queues and exposes a uniform
// Poll/Send interface so every stage can be unit tested by injecting an
// input sequence and collecting the emitted outputs, without any I/O.
package service

import "container/list"

// Service is a stateful object that handles input events and can be polled
// for output events. State can only change in response to OnEvent or Poll.
type Service[In, Out any] interface {
	// OnEvent handles one input event, optionally emitting output events
	// through out.
	OnEvent(out *Outbox[Out], ev In)

	// Poll gives the service a chance to make progress that does not
	// depend on a new input event (timers, sub-streams, ...). It returns
	// the ready event and true, or the zero value and false when there is
	// nothing to report right now.
	Poll(in *Inbox[In], out *Outbox[Out]) (Out, bool)
}

// EventHandler is the simplified shape of Service for components that never
// need to suspend: they only react to input events. Wrap lifts it into a
// full Service.
type EventHandler[In, Out any] interface {
	OnEvent(out *Outbox[Out], ev In)
}

// Inbox is a read/pop handle over a service's input mailbox.
type Inbox[In any] struct {
	q *list.List
}

// Len returns the number of queued input events.
func (i *Inbox[In]) Len() int { return i.q.Len() }

// Empty reports whether the input mailbox is empty.
func (i *Inbox[In]) Empty() bool { return i.q.Len() == 0 }

// PopNext removes and returns the oldest queued input event.
func (i *Inbox[In]) PopNext() (In, bool) {
	var zero In
	e := i.q.Front()
	if e == nil {
		return zero, false
	}
	i.q.Remove(e)
	return e.Value.(In), true
}

// Outbox is an append handle over a service's output mailbox.
type Outbox[Out any] struct {
	q *list.List
}

// Emit enqueues a single output event.
func (o *Outbox[Out]) Emit(ev Out) { o.q.PushBack(ev) }

// EmitBatch enqueues a batch of output events in order.
func (o *Outbox[Out]) EmitBatch(evs []Out) {
	for _, ev := range evs {
		o.q.PushBack(ev)
	}
}

// wrapper lifts an EventHandler into a Service by draining the inbox on
// every poll and delegating each event to OnEvent.
type wrapper[In, Out any] struct {
	inner EventHandler[In, Out]
}

// Wrap adapts an EventHandler into a Service. The resulting service never
// returns Ready from Poll directly: every output goes through the outbox.
func Wrap[In, Out any](h EventHandler[In, Out]) Service[In, Out] {
	return &wrapper[In, Out]{inner: h}
}

func (w *wrapper[In, Out]) OnEvent(out *Outbox[Out], ev In) {
	w.inner.OnEvent(out, ev)
}

func (w *wrapper[In, Out]) Poll(in *Inbox[In], out *Outbox[Out]) (Out, bool) {
	for {
		ev, ok := in.PopNext()
		if !ok {
			break
		}
		w.inner.OnEvent(out, ev)
	}
	var zero Out
	return zero, false
}

// Context wraps a Service with its inbox/outbox queues and exposes the
// uniform DoSend/Poll interface. Poll semantics: a Service.Poll Ready
// short-circuits the outbox; otherwise the oldest queued outbox event, if
// any, is returned.
type Context[In, Out any] struct {
	svc    Service[In, Out]
	inbox  *list.List
	outbox *list.List
}

// NewContext creates a context wrapping the given service.
func NewContext[In, Out any](svc Service[In, Out]) *Context[In, Out] {
	return &Context[In, Out]{
		svc:    svc,
		inbox:  list.New(),
		outbox: list.New(),
	}
}

// Service returns the wrapped service.
func (c *Context[In, Out]) Service() Service[In, Out] { return c.svc }

// DoSend enqueues an input event unconditionally; it is processed on the
// next Poll call.
func (c *Context[In, Out]) DoSend(ev In) {
	c.inbox.PushBack(ev)
}

// Poll drives the wrapped service once, returning the next output event if
// one is ready.
func (c *Context[In, Out]) Poll() (Out, bool) {
	in := &Inbox[In]{q: c.inbox}
	out := &Outbox[Out]{q: c.outbox}

	if ev, ok := c.svc.Poll(in, out); ok {
		return ev, true
	}

	if e := c.outbox.Front(); e != nil {
		c.outbox.Remove(e)
		return e.Value.(Out), true
	}

	var zero Out
	return zero, false
}

// DrainPoll repeatedly polls the context until it returns Pending,
// collecting every ready event in order. Useful in tests and in any driver
// that wants to fully settle a service before moving on.
func DrainPoll[In, Out any](c *Context[In, Out]) []Out {
	var out []Out
	for {
		ev, ok := c.Poll()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}
