package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time and timer scheduling so debounce windows and
// retry backoff stay deterministic under test.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a scheduled callback. Stop reports whether the callback was
// prevented from running.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// NewRealClock returns a Clock backed by the time package.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Module provides the production clock.
var Module = fx.Module("clock",
	fx.Provide(NewRealClock),
)
