package services

import "time"

// SystemClock reads the wall clock. time.Now carries a monotonic reading, so
// comparisons between two readings in one process are immune to clock steps.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
