package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/greenwave-data/intersection.report/internal/monitoring"
	"github.com/greenwave-data/intersection.report/internal/timeutil"
)

// Default frame-loop cadence. The frame interval approximates a display
// refresh; the spawn interval matches the original scheduler.
const (
	DefaultFrameInterval = 33 * time.Millisecond
	DefaultSpawnInterval = 800 * time.Millisecond
)

// ErrRunning is returned by Start when the run's loop is already live.
var ErrRunning = errors.New("simulation already running")

// Mode selects the signal controller variant for a run.
type Mode int

const (
	// ModeRoundRobin serves the four approaches in fixed rotation.
	ModeRoundRobin Mode = iota
	// ModePaired serves the NS and EW pairs once each, larger pair first.
	ModePaired
)

// String returns the mode name used in API payloads.
func (m Mode) String() string {
	if m == ModePaired {
		return "paired"
	}
	return "round-robin"
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "round-robin":
		return ModeRoundRobin, nil
	case "paired":
		return ModePaired, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Durations holds per-approach green time in seconds as supplied by the
// detection service. Non-finite or negative values are treated as zero.
type Durations struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Config describes one simulation run.
type Config struct {
	// CanvasSize is the square viewport edge in px. Required.
	CanvasSize int

	// SpawnRate is the per-spawn-tick vehicle probability in [0,1].
	// Zero selects DefaultSpawnRate.
	SpawnRate float64

	// Mode selects the signal controller variant.
	Mode Mode

	// Durations are the externally supplied green times.
	Durations Durations

	// FrameInterval and SpawnInterval override the loop cadences; zero
	// values select the defaults.
	FrameInterval time.Duration
	SpawnInterval time.Duration

	// Seed makes spawn and jitter sequences reproducible. Zero seeds from
	// the clock.
	Seed int64

	// Clock defaults to the real clock; tests inject a MockClock.
	Clock timeutil.Clock

	// OnComplete, if set, is invoked exactly once per run when the phase
	// controller reaches its terminal state.
	OnComplete func()
}

// Run owns all mutable simulation state. Both scheduled triggers (the frame
// tick and the spawn tick) are multiplexed into a single loop goroutine, so
// every mutation of the vehicle set happens in one place; the mutex only
// guards against concurrent readers taking snapshots.
type Run struct {
	ID    string
	cfg   Config
	clock timeutil.Clock

	mu            sync.Mutex
	vehicles      []*Vehicle
	spawner       *Spawner
	phases        PhaseController
	rng           *rand.Rand
	lastTick      time.Time
	secondAccum   float64
	frameID       uint64
	spawned       int
	history       []HistoryPoint
	running       bool
	phaseComplete bool
	notified      bool
	startedAt     time.Time

	stopOnce *sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	subsMu        sync.Mutex
	subs          map[string]chan Frame
	droppedFrames atomic.Uint64
}

// NewRun validates the config and builds a run in the stopped state.
func NewRun(cfg Config) (*Run, error) {
	if cfg.CanvasSize <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %d", cfg.CanvasSize)
	}
	if cfg.SpawnRate == 0 {
		cfg.SpawnRate = DefaultSpawnRate
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.SpawnInterval <= 0 {
		cfg.SpawnInterval = DefaultSpawnInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	r := &Run{
		ID:    uuid.NewString(),
		cfg:   cfg,
		clock: cfg.Clock,
		subs:  make(map[string]chan Frame),
	}
	r.reset()
	return r, nil
}

// reset rebuilds all per-run state from the current config. Called on
// construction and on every Start so a restarted run begins from the
// initial configuration.
func (r *Run) reset() {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = r.clock.Now().UnixNano()
	}
	r.rng = rand.New(rand.NewSource(seed))
	r.spawner = NewSpawner(r.cfg.SpawnRate, r.rng)
	r.vehicles = nil
	r.history = nil
	r.frameID = 0
	r.spawned = 0
	r.secondAccum = 0
	r.lastTick = time.Time{}
	r.phaseComplete = false
	r.notified = false

	d := r.cfg.Durations
	onComplete := func() { r.phaseComplete = true }
	switch r.cfg.Mode {
	case ModePaired:
		r.phases = NewPaired(d.North, d.South, d.East, d.West, onComplete)
	default:
		ns := d.North
		if d.South > ns {
			ns = d.South
		}
		ew := d.East
		if d.West > ew {
			ew = d.West
		}
		r.phases = NewRoundRobin(ns, ew, onComplete)
	}
}

// Start resets state and launches the run loop. It fails with ErrRunning if
// the loop is already live.
func (r *Run) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunning
	}
	r.reset()
	r.running = true
	r.startedAt = r.clock.Now()
	r.stopCh = make(chan struct{})
	r.stopOnce = &sync.Once{}
	stopCh := r.stopCh
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(stopCh)
	return nil
}

// Stop cancels the pending frame tick and the spawn timer, waits for the
// loop to exit, and clears timestamp state so a restart does not compute a
// bogus delta from a stale timestamp. Stopping a stopped run is a no-op.
func (r *Run) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	once := r.stopOnce
	stopCh := r.stopCh
	r.mu.Unlock()

	once.Do(func() { close(stopCh) })
	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.lastTick = time.Time{}
	r.mu.Unlock()
}

// Running reports whether the loop is live.
func (r *Run) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// loop is the single owner of all simulation mutation. Frame and spawn
// tickers are serialized through one select so their bodies never overlap.
func (r *Run) loop(stopCh chan struct{}) {
	defer r.wg.Done()

	frames := r.clock.NewTicker(r.cfg.FrameInterval)
	defer frames.Stop()
	spawns := r.clock.NewTicker(r.cfg.SpawnInterval)
	defer spawns.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-frames.C():
			r.tick(now)
		case <-spawns.C():
			r.spawnTick()
		}
	}
}

// tick advances the simulation by one frame: integrate every vehicle, cull
// leavers, feed elapsed whole seconds to the phase controller, and publish
// a snapshot. A tick never panics out of the loop; failures abort the frame
// and the next frame retries.
func (r *Run) tick(now time.Time) {
	var frame Frame
	var notify bool

	func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		defer func() {
			if rec := recover(); rec != nil {
				monitoring.Logf("sim: tick %d panic recovered: %v", r.frameID, rec)
			}
		}()

		var dt float64
		if !r.lastTick.IsZero() {
			dt = now.Sub(r.lastTick).Seconds()
			if dt < 0 {
				dt = 0
			} else if dt > MaxFrameDelta {
				dt = MaxFrameDelta
			}
		}
		r.lastTick = now

		// Leaders are resolved against pre-step positions so update order
		// does not matter.
		leaders := make([]*Vehicle, len(r.vehicles))
		for i, v := range r.vehicles {
			leaders[i] = Leader(v, r.vehicles)
		}
		for i, v := range r.vehicles {
			StepVehicle(v, dt, leaders[i], r.phases.Permits(v.Direction), r.rng)
		}
		r.vehicles = Cull(r.vehicles, r.cfg.CanvasSize)

		r.secondAccum += dt
		for r.secondAccum >= 1 {
			r.secondAccum--
			r.phases.Tick()
			r.recordHistory()
		}

		if r.phaseComplete && !r.notified {
			r.notified = true
			notify = true
		}

		r.frameID++
		frame = r.snapshotLocked(now)
	}()

	if frame.RunID != "" {
		r.broadcast(frame)
	}
	if notify && r.cfg.OnComplete != nil {
		r.cfg.OnComplete()
	}
}

// spawnTick runs on the spawn ticker. Spawning stops once the phase
// controller is terminal; existing traffic keeps draining.
func (r *Run) spawnTick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phases.Complete() {
		return
	}
	if v := r.spawner.TrySpawn(r.vehicles); v != nil {
		r.vehicles = append(r.vehicles, v)
		r.spawned++
	}
}

// Step advances the simulation by one frame at the given instant without
// the loop goroutine. Headless drivers use it to run faster than realtime;
// do not mix it with Start.
func (r *Run) Step(now time.Time) { r.tick(now) }

// StepSpawn performs one spawn attempt.
func (r *Run) StepSpawn() { r.spawnTick() }

// recordHistory appends one per-second aggregate sample.
func (r *Run) recordHistory() {
	speeds := make([]float64, len(r.vehicles))
	for i, v := range r.vehicles {
		speeds[i] = v.Speed
	}
	mean := 0.0
	if len(speeds) > 0 {
		mean = stat.Mean(speeds, nil)
	}
	r.history = append(r.history, HistoryPoint{
		Second:       len(r.history),
		VehicleCount: len(r.vehicles),
		MeanSpeed:    mean,
	})
}

// Snapshot returns the current frame state for pull-based consumers.
func (r *Run) Snapshot() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.clock.Now())
}

func (r *Run) snapshotLocked(now time.Time) Frame {
	states := make([]VehicleState, len(r.vehicles))
	for i, v := range r.vehicles {
		states[i] = renderVehicle(v, r.cfg.CanvasSize)
	}
	return Frame{
		RunID:          r.ID,
		FrameID:        r.frameID,
		TimestampNanos: now.UnixNano(),
		VehicleCount:   len(r.vehicles),
		Vehicles:       states,
		Phase:          r.phases.State(),
		Complete:       r.phases.Complete(),
	}
}

// History returns a copy of the per-second aggregate samples.
func (r *Run) History() []HistoryPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HistoryPoint, len(r.history))
	copy(out, r.history)
	return out
}

// VehicleCount returns the size of the live set.
func (r *Run) VehicleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vehicles)
}

// Spawned returns the total number of vehicles created since the last Start.
func (r *Run) Spawned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawned
}

// Mode returns the configured controller variant.
func (r *Run) Mode() Mode { return r.cfg.Mode }

// CanvasSize returns the configured viewport edge in px.
func (r *Run) CanvasSize() int { return r.cfg.CanvasSize }

// Complete reports whether the phase controller reached its terminal state.
func (r *Run) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phases.Complete()
}

// Subscribe registers a frame stream. Slow consumers drop frames rather
// than stall the loop.
func (r *Run) Subscribe() (string, <-chan Frame) {
	id := uuid.NewString()
	ch := make(chan Frame, 8)
	r.subsMu.Lock()
	r.subs[id] = ch
	r.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a frame stream.
func (r *Run) Unsubscribe(id string) {
	r.subsMu.Lock()
	if ch, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(ch)
	}
	r.subsMu.Unlock()
}

// DroppedFrames returns how many frames were discarded on full subscriber
// channels.
func (r *Run) DroppedFrames() uint64 {
	return r.droppedFrames.Load()
}

func (r *Run) broadcast(frame Frame) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- frame:
		default:
			r.droppedFrames.Add(1)
		}
	}
}
