// Package units provides shared constants and validation for speed units
package units

// Unit constants
const (
	PXS  = "pxs"
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// DefaultPxPerMetre is the canvas scale used when a caller does not supply
// one: at this scale a car's 30 px length is a 5 m body.
const DefaultPxPerMetre = 6.0

// ValidUnits contains all valid unit values
var ValidUnits = []string{PXS, MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "pxs, mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from canvas px/s to the target units, given
// the canvas scale in px per metre. The simulator stores all speeds in px/s.
func ConvertSpeed(speedPxs, pxPerMetre float64, targetUnits string) float64 {
	if pxPerMetre <= 0 {
		pxPerMetre = DefaultPxPerMetre
	}
	mps := speedPxs / pxPerMetre
	switch targetUnits {
	case MPS:
		return mps
	case MPH:
		return mps * 2.2369362920544
	case KMPH, KPH:
		return mps * 3.6
	default:
		return speedPxs // px/s if unknown unit
	}
}
