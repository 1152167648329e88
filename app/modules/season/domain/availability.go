package seasondomain

import "time"

// WindowActive reports whether an unavailability window covers the given
// moment. Bounds are inclusive.
func WindowActive(startsAt, endsAt, now time.Time) bool {
	return !now.Before(startsAt) && !now.After(endsAt)
}

// ValidWindow reports whether a window is well-formed: the end must not
// precede the start.
func ValidWindow(startsAt, endsAt time.Time) bool {
	return !endsAt.Before(startsAt)
}
