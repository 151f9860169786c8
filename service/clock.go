package service

import (
	"time"
)

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the wall clock
func SystemClock() Clock {
	return systemClock{}
}
