// Package timing computes green-signal durations from detection results.
//
// The two formulas correspond to the two detection sources: a single photo
// gives only a vehicle count, while a video clip also gives a flow rate and
// a capture hour. Both produce seconds of green time, clamped to the
// operating range of the signal hardware.
package timing

// Formula constants. These are calibrated operating values; do not
// re-derive them.
const (
	photoBase       = 10.0
	photoPerVehicle = 2.0
	photoMin        = 10.0
	photoMax        = 65.0

	// EmergencyExtension is added after clamping when an emergency vehicle
	// is detected, so it may push the result past the normal maximum.
	EmergencyExtension = 10.0

	videoBase       = 33.0
	videoRateGain   = 10.0
	videoPerVehicle = 2.0
	videoCountRef   = 10
	videoMin        = 15.0
	videoMax        = 65.0

	rushHourBonus = 3.0
	nightPenalty  = -3.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PhotoGreen returns the green duration in seconds for a single-frame
// detection: a linear function of the vehicle count, clamped, plus the
// emergency extension when an emergency vehicle was detected.
func PhotoGreen(vehicleCount int, emergency bool) float64 {
	g := clamp(photoBase+photoPerVehicle*float64(vehicleCount), photoMin, photoMax)
	if emergency {
		g += EmergencyExtension
	}
	return g
}

// HourEffect returns the time-of-day adjustment in seconds for the given
// capture hour (0–23): longer greens during the morning and evening rush,
// shorter ones overnight. The rush windows take precedence at the 22:00
// boundary.
func HourEffect(hour int) float64 {
	switch {
	case (hour >= 8 && hour <= 11) || (hour >= 18 && hour <= 22):
		return rushHourBonus
	case hour >= 22 || hour <= 7:
		return nightPenalty
	}
	return 0
}

// VideoGreen returns the green duration in seconds for a video detection:
// flow rate in vehicles per second dominates, the count term corrects for
// queue length relative to a reference of ten vehicles, and the capture
// hour shifts the result for rush hour or night.
func VideoGreen(vehicleCount int, flowRate float64, hour int) float64 {
	g := videoBase +
		videoRateGain*flowRate +
		videoPerVehicle*float64(vehicleCount-videoCountRef) +
		HourEffect(hour)
	return clamp(g, videoMin, videoMax)
}

// Durations holds one green duration per approach, in seconds.
type Durations struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// SyncPairs synchronises opposing approaches: both members of the NS pair
// receive the pair maximum, and likewise for EW. Opposing directions share
// a phase, so the busier member sets the pace for both.
func SyncPairs(d Durations) Durations {
	ns := d.North
	if d.South > ns {
		ns = d.South
	}
	ew := d.East
	if d.West > ew {
		ew = d.West
	}
	return Durations{North: ns, South: ns, East: ew, West: ew}
}
