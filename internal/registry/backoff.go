package registry

import "time"

// DefaultBackoffStep is the delay before the first retry; later retries wait
// a multiple of it
const DefaultBackoffStep = time.Second

// LinearBackOff waits Step after the first failed attempt, 2*Step after the
// second, and so on. It satisfies backoff.BackOff.
type LinearBackOff struct {
	Step    time.Duration
	attempt int
}

// NextBackOff returns the delay before the next attempt
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.Step * time.Duration(b.attempt)
}

// Reset restarts the schedule
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
