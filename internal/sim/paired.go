package sim

// Axis identifies one synchronized approach pair.
type Axis int

const (
	AxisNS Axis = iota
	AxisEW
)

// String returns the pair label used in API payloads.
func (a Axis) String() string {
	if a == AxisNS {
		return "NS"
	}
	return "EW"
}

// Contains reports whether the direction belongs to the axis.
func (a Axis) Contains(d Direction) bool {
	if a == AxisNS {
		return d.NorthSouth()
	}
	return !d.NorthSouth()
}

type pairPhase struct {
	axis      Axis
	total     int
	remaining int
}

// Paired is the two-phase synchronized controller used when a multi-lane
// analysis supplies one duration per approach. Each pair runs at the larger
// of its two members' durations; the pair with the larger total is served
// first; after both pairs have been served once the cycle is terminal and
// does not restart.
type Paired struct {
	phases [2]pairPhase
	idx    int

	complete   bool
	onComplete func()
}

// NewPaired builds a paired controller from per-approach durations in
// seconds. Non-finite or negative durations count as zero.
func NewPaired(north, south, east, west float64, onComplete func()) *Paired {
	ns := sanitizeSeconds(north)
	if s := sanitizeSeconds(south); s > ns {
		ns = s
	}
	ew := sanitizeSeconds(east)
	if w := sanitizeSeconds(west); w > ew {
		ew = w
	}

	c := &Paired{onComplete: onComplete}
	first := pairPhase{axis: AxisNS, total: ns, remaining: ns}
	second := pairPhase{axis: AxisEW, total: ew, remaining: ew}
	if ew > ns {
		first, second = second, first
	}
	c.phases = [2]pairPhase{first, second}

	// Degenerate zero-length run: nothing to serve at all.
	if ns <= 0 && ew <= 0 {
		c.finish()
	}
	return c
}

// Tick advances the active phase by one second.
func (c *Paired) Tick() {
	if c.complete {
		return
	}

	p := &c.phases[c.idx]
	if p.remaining > 0 {
		p.remaining--
	}
	if p.remaining > 0 {
		return
	}

	if c.idx == 0 {
		c.idx = 1
		// A zero-length second phase terminates immediately.
		if c.phases[1].remaining <= 0 {
			c.finish()
		}
		return
	}
	c.finish()
}

func (c *Paired) finish() {
	if c.complete {
		return
	}
	c.complete = true
	if c.onComplete != nil {
		c.onComplete()
		c.onComplete = nil
	}
}

// Permits reports whether the direction's pair currently holds the active
// phase. The green/amber sub-phase is a rendering detail and does not gate
// motion in this variant.
func (c *Paired) Permits(d Direction) bool {
	return !c.complete && c.phases[c.idx].axis.Contains(d)
}

// Complete reports whether both phases have been served.
func (c *Paired) Complete() bool { return c.complete }

// ActiveAxis returns the pair currently being served.
func (c *Paired) ActiveAxis() Axis { return c.phases[c.idx].axis }

// Remaining returns the seconds left in the active phase.
func (c *Paired) Remaining() int { return c.phases[c.idx].remaining }

// lampFor maps remaining seconds to the rendered lamp colour: green while
// more than the amber window remains, amber inside it, red at zero.
func lampFor(remaining int) Lamp {
	switch {
	case remaining > AmberSeconds:
		return LampGreen
	case remaining >= 1:
		return LampAmber
	}
	return LampRed
}

// State returns the display snapshot. The inactive pair shows its static
// total rather than a decrementing countdown.
func (c *Paired) State() PhaseState {
	active := c.phases[c.idx]
	other := c.phases[1-c.idx]

	st := PhaseState{
		Active:    active.axis.String(),
		Lamp:      lampFor(active.remaining),
		Remaining: active.remaining,
		Complete:  c.complete,
	}
	if c.complete {
		st.Lamp = LampRed
	}

	for i := range st.Approaches {
		d := Direction(i)
		sig := ApproachSignal{Direction: d, Lamp: LampRed}
		switch {
		case c.complete:
			sig.Remaining = 0
		case active.axis.Contains(d):
			sig.Lamp = st.Lamp
			sig.Remaining = active.remaining
		default:
			sig.Remaining = other.total
		}
		st.Approaches[i] = sig
	}
	return st
}
