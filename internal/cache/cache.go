// Package cache holds the summary caches used by the HTTP server: an
// in-process LRU and a Redis-backed variant shared between instances.
package cache

import (
	"context"
	"sync"
	"time"

	"studioledger/internal/log"
)

// Cache is a string-keyed store of derived values. Implementations treat
// backend failures as misses so a broken cache only costs recomputation.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(keys ...string)
	Size() int
}

// Cleaner is implemented by caches that need expired entries swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches until stopped.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewJanitor() *Janitor {
	return &Janitor{}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start sweeps every interval. Calling Start twice, or after Stop, is a
// no-op.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil || j.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})
	go j.run(ctx, interval)
}

func (j *Janitor) run(ctx context.Context, interval time.Duration) {
	defer close(j.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				log.FromContext(ctx).WithComponent(log.ComponentCache).
					Debug("Expired cache entries removed", "count", n)
			}
		}
	}
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	n := 0
	for _, c := range caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (j *Janitor) Stop() {
	j.mu.Lock()
	j.stopped = true
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
