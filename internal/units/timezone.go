package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LocalHour returns the hour of day (0-23) of a UTC instant in the given
// timezone. The signal-timing hour adjustment works on the intersection's
// local clock, not UTC.
func LocalHour(utcTime time.Time, tz string) (int, error) {
	if tz == "" || tz == "UTC" {
		return utcTime.UTC().Hour(), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return utcTime.In(loc).Hour(), nil
}
