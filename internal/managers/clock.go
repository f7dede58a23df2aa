package managers

import "time"

// Clock is the time source injected into time-aware managers.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }
