package sim

// VehicleState is the render-ready projection of one live vehicle.
type VehicleState struct {
	ID        string  `json:"id"`
	Class     string  `json:"class"`
	Direction string  `json:"direction"`
	Lane      int     `json:"lane"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Speed     float64 `json:"speed"`
	Width     float64 `json:"width"`
	Length    float64 `json:"length"`
	Colour    string  `json:"colour"`
}

// Frame is one per-tick snapshot of the whole simulation: everything a
// drawing surface needs to paint roads, vehicles, and signal lamps. Frames
// are immutable once published.
type Frame struct {
	RunID          string         `json:"run_id"`
	FrameID        uint64         `json:"frame_id"`
	TimestampNanos int64          `json:"timestamp_nanos"`
	VehicleCount   int            `json:"vehicle_count"`
	Vehicles       []VehicleState `json:"vehicles"`
	Phase          PhaseState     `json:"phase"`
	Complete       bool           `json:"complete"`
}

// HistoryPoint is one per-second sample of aggregate run state, kept for
// post-run reporting.
type HistoryPoint struct {
	Second       int     `json:"second"`
	VehicleCount int     `json:"vehicle_count"`
	MeanSpeed    float64 `json:"mean_speed"`
}

// renderVehicle projects a vehicle onto the canvas.
func renderVehicle(v *Vehicle, canvasSize int) VehicleState {
	spec := v.Class.Spec()
	pt := LanePoint(canvasSize, v.Direction, v.Lane, v.Position, v.LateralJitter, spec.Width/2)
	return VehicleState{
		ID:        v.ID,
		Class:     v.Class.String(),
		Direction: v.Direction.String(),
		Lane:      v.Lane,
		X:         pt.X,
		Y:         pt.Y,
		Rotation:  pt.Rotation,
		Speed:     v.Speed,
		Width:     spec.Width,
		Length:    spec.Length,
		Colour:    spec.Colour,
	}
}
