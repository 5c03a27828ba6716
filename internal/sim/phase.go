package sim

import "math"

// AmberSeconds is the fixed length of the amber window between a green
// phase ending and the next approach receiving green.
const AmberSeconds = 5

// Lamp is the visual state of a signal head.
type Lamp int

const (
	LampRed Lamp = iota
	LampAmber
	LampGreen
)

// String returns the lamp colour name used in API payloads.
func (l Lamp) String() string {
	switch l {
	case LampGreen:
		return "green"
	case LampAmber:
		return "amber"
	}
	return "red"
}

// Countdown holds the remaining seconds of each sub-phase for one approach.
// Red is informational (a countdown to green) and is never itself an exit
// condition.
type Countdown struct {
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`
}

// ApproachSignal is the displayed state of one approach's signal head.
type ApproachSignal struct {
	Direction Direction `json:"direction"`
	Lamp      Lamp      `json:"lamp"`
	Remaining int       `json:"remaining"`
}

// PhaseState is a display snapshot of a phase controller.
type PhaseState struct {
	Active     string            `json:"active"` // label of the approach or pair allowed to move
	Lamp       Lamp              `json:"lamp"`
	Remaining  int               `json:"remaining"`
	Complete   bool              `json:"complete"`
	Approaches [4]ApproachSignal `json:"approaches"`
}

// PhaseController is the contract shared by the round-robin and paired
// signal state machines. Tick advances the machine by one second and is
// driven by the run loop; it never blocks and never fails.
type PhaseController interface {
	Tick()
	Permits(d Direction) bool
	Complete() bool
	State() PhaseState
}

// sanitizeSeconds converts an externally supplied green duration to whole
// seconds. Non-finite or negative values mean "no green time" rather than
// an error.
func sanitizeSeconds(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

// RoundRobin serves the four approaches in fixed rotation (N, E, S, W).
// Even approach indices reuse the north-south base duration, odd indices
// the east-west one, so the two members of each pair always receive equal
// green time.
type RoundRobin struct {
	nsBase int
	ewBase int

	current int // approach index currently holding green (or amber)
	next    int
	amber   bool

	counts       [4]Countdown
	greensServed [4]int

	complete   bool
	onComplete func()
}

// NewRoundRobin builds a round-robin controller from the caller-supplied
// pair durations (seconds). North starts with green.
func NewRoundRobin(nsSeconds, ewSeconds float64, onComplete func()) *RoundRobin {
	c := &RoundRobin{
		nsBase:     sanitizeSeconds(nsSeconds),
		ewBase:     sanitizeSeconds(ewSeconds),
		current:    0,
		next:       1,
		onComplete: onComplete,
	}
	c.counts[c.current] = Countdown{Green: c.base(c.current)}
	for i := range c.counts {
		if i != c.current {
			c.counts[i] = Countdown{Red: c.timeUntilGreen(i)}
		}
	}
	c.greensServed[c.current]++
	return c
}

// base returns the green duration for an approach index: even indices are
// the NS pair, odd the EW pair.
func (c *RoundRobin) base(i int) int {
	if i%2 == 0 {
		return c.nsBase
	}
	return c.ewBase
}

// timeUntilGreen returns the seconds until approach i next holds green,
// counted from the start of the currently active approach's green.
func (c *RoundRobin) timeUntilGreen(i int) int {
	t := 0
	for k := c.current; k != i; k = (k + 1) % 4 {
		t += c.base(k) + AmberSeconds
	}
	return t
}

// Tick advances the controller by one second.
func (c *RoundRobin) Tick() {
	if c.complete {
		return
	}

	for i := range c.counts {
		if i != c.current && c.counts[i].Red > 0 {
			c.counts[i].Red--
		}
	}

	active := &c.counts[c.current]
	if !c.amber {
		if active.Green > 0 {
			active.Green--
		}
		if active.Green <= 0 {
			c.amber = true
			active.Yellow = AmberSeconds
		}
		return
	}

	if active.Yellow > 0 {
		active.Yellow--
	}
	if active.Yellow <= 0 {
		c.advance()
	}
}

// advance hands green to the next approach in rotation and resets the
// finished approach's red countdown. If the incoming approach has no green
// time while every other approach shows a positive red countdown, the
// intersection is all-red and the run is complete.
func (c *RoundRobin) advance() {
	finished := c.current
	c.current = c.next
	c.next = (c.next + 1) % 4
	c.amber = false

	c.counts[finished] = Countdown{Red: c.timeUntilGreen(finished)}
	c.counts[c.current] = Countdown{Green: c.base(c.current)}

	if c.base(c.current) <= 0 && c.allOthersRed() {
		c.complete = true
		if c.onComplete != nil {
			c.onComplete()
			c.onComplete = nil
		}
		return
	}
	c.greensServed[c.current]++
}

// allOthersRed reports whether every approach except the current one shows
// a positive red countdown.
func (c *RoundRobin) allOthersRed() bool {
	for i := range c.counts {
		if i != c.current && c.counts[i].Red <= 0 {
			return false
		}
	}
	return true
}

// Permits reports whether the given approach may move. The active approach
// keeps its permission through the amber window.
func (c *RoundRobin) Permits(d Direction) bool {
	return !c.complete && int(d) == c.current
}

// Complete reports whether the controller has reached its terminal all-red
// state.
func (c *RoundRobin) Complete() bool { return c.complete }

// GreensServed returns how many times each approach has received green.
func (c *RoundRobin) GreensServed() [4]int { return c.greensServed }

// Countdowns returns the per-approach countdown records.
func (c *RoundRobin) Countdowns() [4]Countdown { return c.counts }

// State returns the display snapshot.
func (c *RoundRobin) State() PhaseState {
	st := PhaseState{
		Active:   Direction(c.current).String(),
		Complete: c.complete,
	}
	for i := range st.Approaches {
		sig := ApproachSignal{Direction: Direction(i)}
		switch {
		case c.complete || i != c.current:
			sig.Lamp = LampRed
			sig.Remaining = c.counts[i].Red
		case c.amber:
			sig.Lamp = LampAmber
			sig.Remaining = c.counts[i].Yellow
		default:
			sig.Lamp = LampGreen
			sig.Remaining = c.counts[i].Green
		}
		st.Approaches[i] = sig
	}
	active := st.Approaches[c.current]
	st.Lamp = active.Lamp
	st.Remaining = active.Remaining
	if c.complete {
		st.Lamp = LampRed
	}
	return st
}
