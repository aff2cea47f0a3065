package service

// Mux composes two contexts with independent input and output types into a
// single polled source, always draining the priority side before the other.
// The framing service uses this to prioritise its downstream (encode) side
// over its upstream (decode) side, so outbound frames flush before inbound
// work proceeds (§4.5).
type Mux[AIn, AOut, BIn, BOut, Out any] struct {
	priority *Context[AIn, AOut]
	other    *Context[BIn, BOut]

	mapPriority func(AOut) Out
	mapOther    func(BOut) Out
}

// NewMux builds a multiplexing context. priority is polled first on every
// call to Poll; mapPriority/mapOther adapt each side's native output event
// into the shared Out type.
func NewMux[AIn, AOut, BIn, BOut, Out any](
	priority *Context[AIn, AOut],
	other *Context[BIn, BOut],
	mapPriority func(AOut) Out,
	mapOther func(BOut) Out,
) *Mux[AIn, AOut, BIn, BOut, Out] {
	return &Mux[AIn, AOut, BIn, BOut, Out]{
		priority:    priority,
		other:       other,
		mapPriority: mapPriority,
		mapOther:    mapOther,
	}
}

// Priority returns the context polled first.
func (m *Mux[AIn, AOut, BIn, BOut, Out]) Priority() *Context[AIn, AOut] { return m.priority }

// Other returns the context polled second.
func (m *Mux[AIn, AOut, BIn, BOut, Out]) Other() *Context[BIn, BOut] { return m.other }

// Poll polls the priority context; if it yields nothing, polls the other.
func (m *Mux[AIn, AOut, BIn, BOut, Out]) Poll() (Out, bool) {
	if ev, ok := m.priority.Poll(); ok {
		return m.mapPriority(ev), true
	}
	if ev, ok := m.other.Poll(); ok {
		return m.mapOther(ev), true
	}
	var zero Out
	return zero, false
}

// DrainPoll settles both sides, priority context first, collecting every
// ready event across both in priority order per round.
func (m *Mux[AIn, AOut, BIn, BOut, Out]) DrainPoll() []Out {
	var out []Out
	for {
		ev, ok := m.Poll()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}
