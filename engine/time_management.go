package engine

import (
	"context"
	"time"
)

// Budget bounds one search by wall-clock time. Depth is bounded separately
// by Config.SearchDepth.
type Budget struct {
	start    time.Time
	deadline time.Time
	moveTime time.Duration
}

// NewBudget starts a budget of moveTime. Zero means no deadline.
func NewBudget(moveTime time.Duration) *Budget {
	b := &Budget{start: time.Now(), moveTime: moveTime}
	if moveTime > 0 {
		b.deadline = b.start.Add(moveTime)
	}
	return b
}

// Context derives a context that is cancelled at the deadline.
func (b *Budget) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if b.deadline.IsZero() {
		return context.WithCancel(parent)
	}
	return context.WithDeadline(parent, b.deadline)
}

/*
  - True if we're out of time
  - False if we still got time, or there is no deadline
*/
func (b *Budget) TimeStatus() bool {
	return !b.deadline.IsZero() && b.deadline.Before(time.Now())
}

// Elapsed is the time spent since the budget started.
func (b *Budget) Elapsed() time.Duration { return time.Since(b.start) }
