package amqp

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	}
	return "closed"
}

// breaker stops publishing after tripAfter consecutive failures. Once
// cooldown has passed a single trial publish is let through; its failure
// reopens the breaker immediately.
type breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time

	tripAfter int
	cooldown  time.Duration
	now       func() time.Time
}

func newBreaker(tripAfter int, cooldown time.Duration) *breaker {
	return &breaker{tripAfter: tripAfter, cooldown: cooldown, now: time.Now}
}

// allow reports whether a publish may be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != breakerOpen {
		return true
	}
	if b.now().Sub(b.lastFailure) > b.cooldown {
		b.state = breakerHalfOpen
		return true
	}
	return false
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	if b.failures >= b.tripAfter || b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = breakerClosed
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
