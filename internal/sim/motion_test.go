package sim

import (
	"math"
	"math/rand"
	"testing"
)

func stepFrames(v *Vehicle, n int, leader *Vehicle, canMove bool, rng *rand.Rand) {
	for i := 0; i < n; i++ {
		StepVehicle(v, MaxFrameDelta, leader, canMove, rng)
	}
}

func TestStepVehicleDeltaClamp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	v := NewVehicle(ClassCar, North, 1, -100)
	v.Speed = v.TargetSpeed
	StepVehicle(v, 10.0, nil, true, rng)
	if got, want := v.Position, -100+v.TargetSpeed*MaxFrameDelta; got != want {
		t.Errorf("position after oversized delta = %v, want %v", got, want)
	}

	v = NewVehicle(ClassCar, North, 1, -100)
	v.Speed = 50
	StepVehicle(v, -1.0, nil, true, rng)
	if v.Position != -100 {
		t.Errorf("negative delta moved the vehicle to %v", v.Position)
	}
}

func TestStepVehicleReachesCruise(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for c := ClassCar; c < NumClasses; c++ {
		v := NewVehicle(c, East, 1, -200)
		spec := c.Spec()

		// cruise/accel seconds from rest, plus one frame of slack.
		frames := int(math.Ceil(spec.Cruise/spec.Accel/MaxFrameDelta)) + 1
		stepFrames(v, frames, nil, true, rng)

		if v.Speed != spec.Cruise {
			t.Errorf("%v: speed after %d frames = %v, want cruise %v", c, frames, v.Speed, spec.Cruise)
		}
	}
}

func TestStepVehicleRedLight(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	t.Run("before stop line brakes to rest", func(t *testing.T) {
		v := NewVehicle(ClassCar, North, 1, -200)
		v.Speed = v.TargetSpeed
		stepFrames(v, 200, nil, false, rng)
		if v.Speed != 0 {
			t.Errorf("speed at red = %v, want 0", v.Speed)
		}
	})

	t.Run("past stop line keeps moving", func(t *testing.T) {
		v := NewVehicle(ClassCar, North, 1, 5)
		v.Speed = 40
		before := v.Position
		stepFrames(v, 50, nil, false, rng)
		if v.Position <= before {
			t.Errorf("vehicle inside the intersection stalled at %v", v.Position)
		}
		if v.Speed != v.TargetSpeed {
			t.Errorf("speed past the line = %v, want cruise %v", v.Speed, v.TargetSpeed)
		}
	})

	t.Run("braking outpaces acceleration", func(t *testing.T) {
		accel := NewVehicle(ClassCar, North, 1, -300)
		brake := NewVehicle(ClassCar, North, 1, -300)
		brake.Speed = brake.TargetSpeed

		StepVehicle(accel, MaxFrameDelta, nil, true, rng)
		StepVehicle(brake, MaxFrameDelta, nil, false, rng)

		gained := accel.Speed
		lost := brake.TargetSpeed - brake.Speed
		if math.Abs(lost-BrakeFactor*gained) > 1e-9 {
			t.Errorf("brake delta %v, want %v", lost, BrakeFactor*gained)
		}
	})
}

// TestStepVehicleFollowing drives a vehicle from rest toward a stopped
// leader and verifies it never overlaps it.
func TestStepVehicleFollowing(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	leader := NewVehicle(ClassTruck, West, 2, -60)
	follower := NewVehicle(ClassCar, West, 2, -400)

	for i := 0; i < 2000; i++ {
		StepVehicle(follower, MaxFrameDelta, leader, true, rng)
		if g := Gap(follower, leader); g < 0 {
			t.Fatalf("frame %d: follower overlaps leader, gap %v", i, g)
		}
	}

	// The queue settles close behind the leader, not far away.
	if g := Gap(follower, leader); g > SafeStopDistance+1 {
		t.Errorf("settled gap = %v, want within %v", Gap(follower, leader), SafeStopDistance+1)
	}
}

func TestStepVehicleJitterBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	v := NewVehicle(ClassCar, South, 1, -100)
	bound := JitterBound(v.Width())
	for i := 0; i < 1000; i++ {
		StepVehicle(v, MaxFrameDelta, nil, true, rng)
		if math.Abs(v.LateralJitter) > bound {
			t.Fatalf("frame %d: jitter %v exceeds bound %v", i, v.LateralJitter, bound)
		}
	}
}

func TestCull(t *testing.T) {
	const canvas = 900
	limit := float64(canvas + CullMargin)

	keepNear := NewVehicle(ClassCar, North, 1, 10)
	keepFar := NewVehicle(ClassCar, East, 1, limit-1)
	keepBehind := NewVehicle(ClassCar, South, 2, -limit+1)
	goneAhead := NewVehicle(ClassCar, West, 1, limit)
	goneBehind := NewVehicle(ClassCar, North, 2, -limit-500)

	vehicles := []*Vehicle{keepNear, goneAhead, keepFar, goneBehind, keepBehind}
	kept := Cull(vehicles, canvas)

	if len(kept) != 3 {
		t.Fatalf("kept %d vehicles, want 3", len(kept))
	}
	want := []*Vehicle{keepNear, keepFar, keepBehind}
	for i, v := range want {
		if kept[i] != v {
			t.Errorf("kept[%d] = %v, want %v (order must be preserved)", i, kept[i].ID, v.ID)
		}
	}

	// Idempotent: a second pass removes nothing.
	again := Cull(kept, canvas)
	if len(again) != len(kept) {
		t.Errorf("second cull removed %d vehicles", len(kept)-len(again))
	}
}
