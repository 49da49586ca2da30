// Package clock supplies the current instant to the session engine.
//
// Every time-dependent decision (token issuance, expiry checks, cookie
// expiry) reads the instant through a [Clock] so tests can freeze time.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock {
	return systemClock{}
}

type frozenClock struct {
	at time.Time
}

func (c frozenClock) Now() time.Time { return c.at }

// Frozen returns a Clock that always reports at.
func Frozen(at time.Time) Clock {
	return frozenClock{at: at}
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }
