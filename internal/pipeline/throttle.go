package pipeline

import (
	"context"
	"time"
)

// Throttle pauses for a fixed delay after every send attempt, successful or
// not, so the next attempt starts at least delay after the previous one ended.
type Throttle struct {
	delay time.Duration
}

// NewThrottle creates a throttle; a delay of zero or less never pauses
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{delay: delay}
}

// Pause blocks for the delay or until ctx is done
func (t *Throttle) Pause(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(t.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
