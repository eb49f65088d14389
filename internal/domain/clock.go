package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps generated dashboards so tests and fixture tools can freeze time
// via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for dashboard stamps. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

func now() time.Time {
	return clock.Now().UTC()
}
