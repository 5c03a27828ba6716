package sim

import (
	"math"
	"math/rand"
)

// Motion model constants. The braking multiplier and headway are empirically
// chosen tuning values carried over from the original model.
const (
	// MaxFrameDelta caps the per-frame integration step so a stalled host
	// (background tab, suspended process) cannot produce huge jumps.
	MaxFrameDelta = 0.08 // seconds

	// SafeStopDistance is the standstill clearance kept behind a leader.
	SafeStopDistance = 8.0 // px

	// TimeHeadway converts leader gap into a speed ceiling.
	TimeHeadway = 1.0 // seconds

	// BrakeFactor scales deceleration relative to acceleration; braking is
	// deliberately stronger than accelerating.
	BrakeFactor = 1.8

	// lateralJitterStep is the half-range of the per-frame lateral
	// perturbation that produces bounded lane-keeping noise.
	lateralJitterStep = 1.2 // px
)

// StepVehicle advances one vehicle by dt seconds of car-following motion.
//
// canMove reports whether the signal currently permits the vehicle's
// approach; a vehicle that is still before the stop line and not permitted
// targets zero speed. A leader, if present, caps the desired speed so the
// gap never closes below SafeStopDistance at the current headway.
func StepVehicle(v *Vehicle, dt float64, leader *Vehicle, canMove bool, rng *rand.Rand) {
	if dt < 0 {
		dt = 0
	} else if dt > MaxFrameDelta {
		dt = MaxFrameDelta
	}

	desired := v.TargetSpeed
	if !canMove && v.Position < 0 {
		desired = 0
	}
	if leader != nil {
		safe := (Gap(v, leader) - SafeStopDistance) / TimeHeadway
		if safe < 0 {
			safe = 0
		}
		if safe < desired {
			desired = safe
		}
	}

	if v.Speed < desired {
		v.Speed = math.Min(desired, v.Speed+v.Accel*dt)
	} else if v.Speed > desired {
		v.Speed = math.Max(desired, v.Speed-BrakeFactor*v.Accel*dt)
	}

	v.Position += v.Speed * dt

	// Continuous, bounded lane-keeping noise: perturb then re-clamp.
	v.LateralJitter += (rng.Float64()*2 - 1) * lateralJitterStep
	bound := JitterBound(v.Width())
	if v.LateralJitter > bound {
		v.LateralJitter = bound
	} else if v.LateralJitter < -bound {
		v.LateralJitter = -bound
	}
}

// Cull removes vehicles whose position magnitude has left the canvas plus
// margin, returning the retained slice. Culling is idempotent: re-running it
// on an already-culled set removes nothing.
func Cull(vehicles []*Vehicle, canvasSize int) []*Vehicle {
	limit := float64(canvasSize + CullMargin)
	kept := vehicles[:0]
	for _, v := range vehicles {
		if math.Abs(v.Position) < limit {
			kept = append(kept, v)
		}
	}
	// Zero the tail so culled vehicles do not pin memory.
	for i := len(kept); i < len(vehicles); i++ {
		vehicles[i] = nil
	}
	return kept
}
