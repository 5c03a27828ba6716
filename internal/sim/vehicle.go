// Package sim implements the per-frame intersection traffic simulator:
// vehicle spawning, car-following motion, lane geometry, and the signal
// phase state machines that gate each approach.
//
// All distances are in canvas pixels, speeds in px/s, and accelerations in
// px/s². Longitudinal position is measured from the stop line of the
// vehicle's approach: negative while approaching, zero at the line, and
// increasing as the vehicle crosses the intersection and leaves the far side.
package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// Direction identifies one of the four approaches feeding the intersection.
// The numeric order (N, E, S, W) is the signal rotation order.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// String returns the lowercase compass name used in API payloads.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection maps a compass name to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "north":
		return North, nil
	case "east":
		return East, nil
	case "south":
		return South, nil
	case "west":
		return West, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// NorthSouth reports whether the approach belongs to the north-south pair.
func (d Direction) NorthSouth() bool {
	return d == North || d == South
}

// Class is a vehicle body class. It determines footprint, colour, cruise
// speed, and acceleration.
type Class int

const (
	ClassCar Class = iota
	ClassSUV
	ClassBus
	ClassTruck
)

// NumClasses is the number of spawnable vehicle classes.
const NumClasses = 4

// String returns the class name used in API payloads.
func (c Class) String() string {
	switch c {
	case ClassCar:
		return "car"
	case ClassSUV:
		return "suv"
	case ClassBus:
		return "bus"
	case ClassTruck:
		return "truck"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// ClassSpec holds the per-class body and performance parameters.
type ClassSpec struct {
	Width  float64 // px, lateral
	Length float64 // px, longitudinal
	Cruise float64 // px/s, unobstructed target speed
	Accel  float64 // px/s²
	Colour string  // render hint
}

// classSpecs is indexed by Class. The values are empirically chosen render
// constants carried over from the original visualisation; do not re-derive.
var classSpecs = [NumClasses]ClassSpec{
	ClassCar:   {Width: 18, Length: 30, Cruise: 120, Accel: 60, Colour: "#4f83cc"},
	ClassSUV:   {Width: 20, Length: 34, Cruise: 110, Accel: 55, Colour: "#6aa84f"},
	ClassBus:   {Width: 22, Length: 48, Cruise: 90, Accel: 40, Colour: "#e69138"},
	ClassTruck: {Width: 22, Length: 44, Cruise: 85, Accel: 35, Colour: "#999999"},
}

// Spec returns the body and performance parameters for the class.
func (c Class) Spec() ClassSpec {
	if c < 0 || int(c) >= NumClasses {
		return classSpecs[ClassCar]
	}
	return classSpecs[c]
}

// Vehicle is a live simulated vehicle. It is created by the Spawner, mutated
// every frame by the motion step, and removed once it leaves the canvas.
type Vehicle struct {
	ID        string
	Class     Class
	Direction Direction
	Lane      int // 1 (inner) or 2 (outer)

	Position      float64 // px from the stop line, signed
	Speed         float64 // px/s
	TargetSpeed   float64 // px/s, class cruise speed
	Accel         float64 // px/s²
	LateralJitter float64 // px, bounded lane-keeping noise
}

// NewVehicle creates a vehicle of the given class at the given start position.
func NewVehicle(class Class, dir Direction, lane int, position float64) *Vehicle {
	spec := class.Spec()
	return &Vehicle{
		ID:          uuid.NewString(),
		Class:       class,
		Direction:   dir,
		Lane:        lane,
		Position:    position,
		TargetSpeed: spec.Cruise,
		Accel:       spec.Accel,
	}
}

// Width returns the vehicle's lateral footprint in px.
func (v *Vehicle) Width() float64 { return v.Class.Spec().Width }

// Length returns the vehicle's longitudinal footprint in px.
func (v *Vehicle) Length() float64 { return v.Class.Spec().Length }

// Leader returns the nearest vehicle ahead of v in the same direction and
// lane (strictly larger position), or nil if the lane is clear ahead.
func Leader(v *Vehicle, vehicles []*Vehicle) *Vehicle {
	var leader *Vehicle
	for _, other := range vehicles {
		if other == v || other.Direction != v.Direction || other.Lane != v.Lane {
			continue
		}
		if other.Position <= v.Position {
			continue
		}
		if leader == nil || other.Position < leader.Position {
			leader = other
		}
	}
	return leader
}

// Gap returns the longitudinal clearance between v's front and its leader's
// rear in px. Negative values indicate overlap.
func Gap(v, leader *Vehicle) float64 {
	return leader.Position - v.Position - leader.Length()
}
