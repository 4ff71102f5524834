package search

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/cmsearch/internal/metrics"
)

// Throttle runs expensive searches in a bounded background lane so they
// cannot starve foreground traffic.
type Throttle struct {
	lane *semaphore.Weighted
}

// NewThrottle creates a lane with slots concurrent searches. Zero or fewer
// slots disable throttling.
func NewThrottle(slots int) *Throttle {
	if slots <= 0 {
		return &Throttle{}
	}
	return &Throttle{lane: semaphore.NewWeighted(int64(slots))}
}

// Lower moves the calling goroutine into the background lane. The returned
// restore must be called on every exit path; calling it more than once is
// safe.
func (t *Throttle) Lower(ctx context.Context) (restore func(), err error) {
	if t == nil || t.lane == nil {
		return func() {}, nil
	}
	metrics.SearchBackgroundLaneWaiting.Inc()
	err = t.lane.Acquire(ctx, 1)
	metrics.SearchBackgroundLaneWaiting.Dec()
	if err != nil {
		return func() {}, fmt.Errorf("waiting for background lane: %w", err)
	}
	var once sync.Once
	return func() { once.Do(func() { t.lane.Release(1) }) }, nil
}
