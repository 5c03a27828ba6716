package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenwave-data/intersection.report/internal/timeutil"
)

func testRunConfig(clock timeutil.Clock) Config {
	return Config{
		CanvasSize: 900,
		SpawnRate:  1,
		Mode:       ModeRoundRobin,
		Durations:  Durations{North: 10, South: 10, East: 7, West: 7},
		Seed:       42,
		Clock:      clock,
	}
}

func TestNewRunValidation(t *testing.T) {
	_, err := NewRun(Config{CanvasSize: 0})
	require.Error(t, err)
	_, err = NewRun(Config{CanvasSize: -100})
	require.Error(t, err)

	r, err := NewRun(Config{CanvasSize: 900})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, DefaultSpawnRate, r.cfg.SpawnRate)
	assert.Equal(t, DefaultFrameInterval, r.cfg.FrameInterval)
	assert.Equal(t, DefaultSpawnInterval, r.cfg.SpawnInterval)
	assert.False(t, r.Running())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"round-robin", ModeRoundRobin, false},
		{"paired", ModePaired, false},
		{"", ModeRoundRobin, false},
		{"simple", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestRunTick drives the loop bodies directly: the first frame computes no
// motion (no previous timestamp), later frames integrate the clamped delta.
func TestRunTick(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	r, err := NewRun(testRunConfig(clock))
	require.NoError(t, err)

	r.spawnTick()
	require.Equal(t, 1, r.VehicleCount(), "spawn rate 1 must spawn every tick")
	pos := r.vehicles[0].Position

	now := clock.Now()
	r.tick(now)
	assert.Equal(t, pos, r.vehicles[0].Position, "first frame has no delta")
	assert.Equal(t, uint64(1), r.frameID)

	// A held frame is clamped, so position advances by at most
	// cruise × MaxFrameDelta regardless of wall time elapsed.
	now = now.Add(5 * time.Second)
	r.tick(now)
	moved := r.vehicles[0].Position - pos
	assert.LessOrEqual(t, moved, r.vehicles[0].TargetSpeed*MaxFrameDelta+1e-9)
}

func TestRunHistoryAccumulates(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	r, err := NewRun(testRunConfig(clock))
	require.NoError(t, err)

	r.spawnTick()
	now := clock.Now()
	r.tick(now)

	// 30 frames of 80ms pass two whole seconds of simulation time.
	for i := 0; i < 30; i++ {
		now = now.Add(80 * time.Millisecond)
		r.tick(now)
	}

	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, 0, history[0].Second)
	assert.Equal(t, 1, history[1].Second)
	assert.Equal(t, 1, history[0].VehicleCount)
}

func TestRunCompletion(t *testing.T) {
	completions := 0
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	cfg := testRunConfig(clock)
	cfg.Mode = ModePaired
	cfg.Durations = Durations{North: 2, South: 1, East: 1, West: 1}
	cfg.OnComplete = func() { completions++ }

	r, err := NewRun(cfg)
	require.NoError(t, err)

	now := clock.Now()
	r.tick(now)
	// Three controller seconds: two for NS, one for EW.
	for i := 0; i < 40 && !r.Complete(); i++ {
		now = now.Add(80 * time.Millisecond)
		r.tick(now)
	}
	require.True(t, r.Complete())
	assert.Equal(t, 1, completions)

	// Completion stops spawning; the callback does not re-fire.
	before := r.VehicleCount()
	r.spawnTick()
	assert.Equal(t, before, r.VehicleCount())
	now = now.Add(80 * time.Millisecond)
	r.tick(now)
	assert.Equal(t, 1, completions)

	frame := r.Snapshot()
	assert.True(t, frame.Complete)
}

func TestRunStartStopRestart(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	r, err := NewRun(testRunConfig(clock))
	require.NoError(t, err)

	require.NoError(t, r.Start())
	assert.True(t, r.Running())
	assert.ErrorIs(t, r.Start(), ErrRunning)

	r.Stop()
	assert.False(t, r.Running())
	r.Stop() // idempotent

	// Mutate state, then confirm a restart resets it.
	r.spawnTick()
	r.tick(clock.Now())
	require.NotZero(t, r.frameID)

	require.NoError(t, r.Start())
	defer r.Stop()
	assert.Zero(t, r.frameID)
	assert.Zero(t, r.VehicleCount())
	assert.Zero(t, r.Spawned())
	assert.Empty(t, r.History())
	assert.False(t, r.Complete())
}

// TestRunDeterministic verifies two runs with the same seed produce the
// same spawn and motion sequences.
func TestRunDeterministic(t *testing.T) {
	mk := func() *Run {
		clock := timeutil.NewMockClock(time.Unix(1000, 0))
		r, err := NewRun(testRunConfig(clock))
		require.NoError(t, err)
		return r
	}
	a, b := mk(), mk()

	now := time.Unix(1000, 0)
	for i := 0; i < 100; i++ {
		if i%10 == 0 {
			a.spawnTick()
			b.spawnTick()
		}
		now = now.Add(33 * time.Millisecond)
		a.tick(now)
		b.tick(now)
	}

	require.Equal(t, a.VehicleCount(), b.VehicleCount())
	for i := range a.vehicles {
		assert.Equal(t, a.vehicles[i].Position, b.vehicles[i].Position, "vehicle %d", i)
		assert.Equal(t, a.vehicles[i].Class, b.vehicles[i].Class, "vehicle %d", i)
	}
}

func TestRunSubscribe(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	r, err := NewRun(testRunConfig(clock))
	require.NoError(t, err)

	id, ch := r.Subscribe()
	r.tick(clock.Now())

	select {
	case frame := <-ch:
		assert.Equal(t, r.ID, frame.RunID)
		assert.Equal(t, uint64(1), frame.FrameID)
	default:
		t.Fatal("no frame broadcast to subscriber")
	}

	// A full subscriber channel drops frames instead of blocking the loop.
	now := clock.Now()
	for i := 0; i < 20; i++ {
		now = now.Add(33 * time.Millisecond)
		r.tick(now)
	}
	assert.Greater(t, r.DroppedFrames(), uint64(0))

	r.Unsubscribe(id)
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}

func TestManager(t *testing.T) {
	m := NewManager()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))

	r, err := m.Create(testRunConfig(clock))
	require.NoError(t, err)
	assert.True(t, r.Running())

	got, err := m.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	r2, err := m.Create(testRunConfig(timeutil.NewMockClock(time.Unix(1000, 0))))
	require.NoError(t, err)
	assert.Len(t, m.List(), 2)

	require.NoError(t, m.Remove(r.ID))
	assert.False(t, r.Running())
	assert.ErrorIs(t, m.Remove(r.ID), ErrNotFound)
	assert.Len(t, m.List(), 1)

	m.StopAll()
	assert.False(t, r2.Running())

	_, err = m.Create(Config{CanvasSize: 0})
	assert.Error(t, err)
}
