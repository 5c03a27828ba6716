package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"positive", 33, 33},
		{"rounds half up", 33.5, 34},
		{"rounds down", 33.4, 33},
		{"zero", 0, 0},
		{"negative", -5, 0},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"negative inf", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSeconds(tt.in); got != tt.want {
				t.Errorf("sanitizeSeconds(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoundRobinInitialState(t *testing.T) {
	c := NewRoundRobin(10, 7, nil)

	assert.True(t, c.Permits(North), "north starts with green")
	for _, d := range []Direction{East, South, West} {
		assert.False(t, c.Permits(d), "%v must start red", d)
	}

	// Red countdowns are the exact time until each approach's green:
	// every hop ahead of it contributes its green plus the amber window.
	counts := c.Countdowns()
	assert.Equal(t, 10, counts[North].Green)
	assert.Equal(t, 10+AmberSeconds, counts[East].Red)
	assert.Equal(t, 10+AmberSeconds+7+AmberSeconds, counts[South].Red)
	assert.Equal(t, 10+AmberSeconds+7+AmberSeconds+10+AmberSeconds, counts[West].Red)
}

// TestRoundRobinHandover ticks through one full green and amber window and
// verifies the handover lands exactly when the next approach's red reaches
// zero.
func TestRoundRobinHandover(t *testing.T) {
	c := NewRoundRobin(10, 7, nil)

	// 10 seconds of green, then the amber window opens.
	for i := 0; i < 10; i++ {
		require.True(t, c.Permits(North), "second %d", i)
		c.Tick()
	}
	st := c.State()
	assert.Equal(t, LampAmber, st.Lamp)
	assert.Equal(t, AmberSeconds, st.Remaining)
	assert.True(t, c.Permits(North), "amber keeps permission")

	// Amber runs its fixed window, then east goes green.
	for i := 0; i < AmberSeconds; i++ {
		require.True(t, c.Permits(North))
		c.Tick()
	}
	assert.False(t, c.Permits(North))
	assert.True(t, c.Permits(East))

	counts := c.Countdowns()
	assert.Equal(t, 7, counts[East].Green)
	assert.Equal(t, 7+AmberSeconds, counts[South].Red, "south is the very next approach")
	assert.Equal(t, 7+AmberSeconds+10+AmberSeconds+7+AmberSeconds, counts[North].Red,
		"north waits a full remaining rotation")
}

// TestRoundRobinRotation runs several full cycles and verifies the rotation
// order and that pair members always receive the same green duration.
func TestRoundRobinRotation(t *testing.T) {
	const ns, ew = 8, 6
	c := NewRoundRobin(ns, ew, nil)

	order := []Direction{North, East, South, West}
	for cycle := 0; cycle < 3; cycle++ {
		for i, d := range order {
			dur := ns
			if i%2 == 1 {
				dur = ew
			}
			for s := 0; s < dur+AmberSeconds; s++ {
				require.True(t, c.Permits(d), "cycle %d approach %v second %d", cycle, d, s)
				c.Tick()
			}
		}
	}

	served := c.GreensServed()
	for i, n := range served {
		// Three full cycles plus the fourth cycle's north green just granted.
		want := 3
		if i == 0 {
			want = 4
		}
		assert.Equal(t, want, n, "approach %v greens", Direction(i))
	}
	assert.False(t, c.Complete(), "positive durations never complete")
}

// TestRoundRobinDegenerate verifies all-zero durations drive the controller
// into its terminal all-red state after the first amber window.
func TestRoundRobinDegenerate(t *testing.T) {
	fired := 0
	c := NewRoundRobin(0, 0, func() { fired++ })

	for i := 0; i < 20 && !c.Complete(); i++ {
		c.Tick()
	}
	require.True(t, c.Complete())
	assert.Equal(t, 1, fired, "completion callback fires exactly once")

	for _, d := range []Direction{North, East, South, West} {
		assert.False(t, c.Permits(d), "terminal state permits nothing")
	}
	st := c.State()
	assert.True(t, st.Complete)
	assert.Equal(t, LampRed, st.Lamp)

	// Terminal state is absorbing.
	c.Tick()
	assert.True(t, c.Complete())
	assert.Equal(t, 1, fired)
}

func TestRoundRobinStateSnapshot(t *testing.T) {
	c := NewRoundRobin(12, 9, nil)
	c.Tick()
	c.Tick()

	st := c.State()
	assert.Equal(t, "north", st.Active)
	assert.Equal(t, LampGreen, st.Lamp)
	assert.Equal(t, 10, st.Remaining)
	assert.Equal(t, LampGreen, st.Approaches[North].Lamp)
	for _, d := range []Direction{East, South, West} {
		assert.Equal(t, LampRed, st.Approaches[d].Lamp)
	}
	assert.Equal(t, 12+AmberSeconds-2, st.Approaches[East].Remaining)
}
