package clock

import "time"

// Clock supplies the current time. Services never call time.Now directly so
// timeouts and scheduling windows are testable.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
