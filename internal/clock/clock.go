package clock

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

func FormatRFC3339Nano(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

// Timer is a scheduled function call that can be cancelled.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call has
	// already fired or been stopped.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type RealClock struct{}

func (m RealClock) Now() time.Time {
	return Now()
}

func (m RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
