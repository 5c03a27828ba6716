package sim

import "math"

// Road layout constants. The canvas is square with the intersection at its
// centre; each road is two lanes wide per travel direction and vehicles keep
// to the right of the centre line.
const (
	// LanesPerApproach is the number of lanes per travel direction.
	LanesPerApproach = 2

	// LaneWidth is the width of a single lane in px.
	LaneWidth = 28.0

	// RoadHalfWidth is the distance from the road centre line to the road
	// edge: one carriageway of LanesPerApproach lanes.
	RoadHalfWidth = LanesPerApproach * LaneWidth

	// CullMargin is how far past the canvas edge a vehicle may travel
	// before it is removed from the live set.
	CullMargin = 250
)

// RenderPoint is the result of mapping a vehicle's logical state onto the
// canvas: a centre coordinate and a fixed per-direction rotation.
type RenderPoint struct {
	X        float64
	Y        float64
	Rotation float64 // radians; vehicles do not turn
}

// rotationFor is the fixed render rotation per travel direction.
func rotationFor(d Direction) float64 {
	switch d {
	case North:
		return 0
	case East:
		return math.Pi / 2
	case South:
		return math.Pi
	case West:
		return -math.Pi / 2
	}
	return 0
}

// LanePoint maps (direction, lane, position, lateralJitter, halfWidth) to
// canvas coordinates. It is a pure function of its inputs.
//
// The lane centre sits half a lane width from the road centre line for lane
// 1 and one and a half for lane 2. The jitter is added and the resulting
// lateral coordinate is then clamped so the vehicle body stays inside the
// paved road rectangle; this is a second, independent safety clamp on top
// of the jitter bound applied by the motion step.
func LanePoint(canvasSize int, d Direction, lane int, position, lateralJitter, halfWidth float64) RenderPoint {
	centre := float64(canvasSize) / 2
	laneOffset := (float64(lane) - 0.5) * LaneWidth
	stop := centre + RoadHalfWidth // stop line distance from the canvas centre

	var x, y float64
	switch d {
	case North: // travelling up the canvas, east carriageway
		x = clampLateral(centre+laneOffset+lateralJitter, centre, halfWidth)
		y = stop - position
	case South: // travelling down, west carriageway
		x = clampLateral(centre-laneOffset+lateralJitter, centre, halfWidth)
		y = (centre - RoadHalfWidth) + position
	case East: // travelling right, south carriageway
		x = (centre - RoadHalfWidth) + position
		y = clampLateral(centre+laneOffset+lateralJitter, centre, halfWidth)
	case West: // travelling left, north carriageway
		x = stop - position
		y = clampLateral(centre-laneOffset+lateralJitter, centre, halfWidth)
	}

	return RenderPoint{X: x, Y: y, Rotation: rotationFor(d)}
}

// clampLateral keeps an absolute lateral coordinate at least half a vehicle
// width inside each road edge.
func clampLateral(v, centre, halfWidth float64) float64 {
	lo := centre - RoadHalfWidth + halfWidth
	hi := centre + RoadHalfWidth - halfWidth
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// JitterBound returns the largest admissible |lateralJitter| for a vehicle
// of the given width: the half lane width minus half the body width, with a
// 4 px floor on the body term.
func JitterBound(width float64) float64 {
	bound := LaneWidth/2 - math.Max(4, width/2)
	if bound < 0 {
		return 0
	}
	return bound
}
