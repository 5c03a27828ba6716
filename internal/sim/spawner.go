package sim

import (
	"math/rand"
)

// Spawn scheduling constants. The interval and probability reproduce the
// original cadence of roughly one vehicle per five seconds per simulation.
const (
	// DefaultSpawnRate is the per-tick probability of creating a vehicle.
	DefaultSpawnRate = 0.15

	// SpawnPosition is the default start position when a lane is empty:
	// well before the stop line, just off the visible canvas.
	SpawnPosition = -150

	// spawnSpacingBase is the minimum clear distance to the vehicle behind
	// which a new vehicle is placed, before adding the vehicle's own width.
	spawnSpacingBase = 30

	// spawnJitter is the half-range of the random offset applied to each
	// spawn position so arrivals are not perfectly periodic.
	spawnJitter = 10
)

// Spawner creates vehicles on a probabilistic schedule. It draws direction,
// lane, and class uniformly from an injected random source so spawn
// sequences are reproducible in tests.
type Spawner struct {
	rate float64
	rng  *rand.Rand
}

// NewSpawner returns a spawner with the given per-tick probability. The rate
// is clamped to [0, 1].
func NewSpawner(rate float64, rng *rand.Rand) *Spawner {
	if rate < 0 {
		rate = 0
	} else if rate > 1 {
		rate = 1
	}
	return &Spawner{rate: rate, rng: rng}
}

// TrySpawn rolls the spawn probability and, on a hit, returns a new vehicle
// positioned behind any traffic already queued in its lane. It returns nil
// on a miss; spawning is best-effort and has no error conditions.
func (s *Spawner) TrySpawn(vehicles []*Vehicle) *Vehicle {
	if s.rng.Float64() >= s.rate {
		return nil
	}

	dir := Direction(s.rng.Intn(4))
	lane := 1 + s.rng.Intn(LanesPerApproach)
	class := Class(s.rng.Intn(NumClasses))

	pos := s.spawnPosition(vehicles, dir, lane, class)
	return NewVehicle(class, dir, lane, pos)
}

// spawnPosition places a new vehicle behind the farthest-back vehicle in the
// same (direction, lane), keeping at least spawnSpacingBase plus the new
// vehicle's width of clearance, with a ±spawnJitter offset.
func (s *Spawner) spawnPosition(vehicles []*Vehicle, dir Direction, lane int, class Class) float64 {
	tail := 0.0
	found := false
	for _, v := range vehicles {
		if v.Direction != dir || v.Lane != lane {
			continue
		}
		if !found || v.Position < tail {
			tail = v.Position
			found = true
		}
	}

	jitter := (s.rng.Float64()*2 - 1) * spawnJitter
	if !found {
		return SpawnPosition + jitter
	}

	minSpacing := spawnSpacingBase + class.Spec().Width
	pos := tail - minSpacing + jitter
	if pos > SpawnPosition {
		pos = SpawnPosition + jitter
	}
	return pos
}
