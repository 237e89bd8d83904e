package clock

import "time"

// Clock supplies the current time to services and entity constructors.
// Tests pin it with memory/clock.ManualClock.
type Clock interface {
	Now() time.Time
}
