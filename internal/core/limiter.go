package core

// limiter.go bounds how many uploaded files are cleaned at once.
//
// Cleaning holds the whole file in memory, so parallel uploads are limited by
// a semaphore. When all slots are taken, new requests wait up to maxWait
// before failing with ErrTooManyCleans. WaitForDrain supports graceful
// shutdown.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyCleans is returned when all slots are occupied and the wait
// timeout expires. Clients should retry after a short delay.
var ErrTooManyCleans = errors.New("too many concurrent clean requests, please try again later")

// DefaultMaxConcurrentCleans is the default limit for parallel cleans.
const DefaultMaxConcurrentCleans = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// CleanLimiter controls concurrent cleaning using a semaphore.
type CleanLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCleanLimiter creates a limiter that allows at most maxConcurrent
// simultaneous cleans. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyCleans.
func NewCleanLimiter(maxConcurrent int, maxWait time.Duration) *CleanLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCleans
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &CleanLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot.
// The caller MUST call Release() when done (use defer).
func (l *CleanLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyCleans
	}
}

// TryAcquire takes a slot without blocking and reports whether it got one.
func (l *CleanLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *CleanLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of cleans in progress.
func (l *CleanLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *CleanLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active cleans complete or ctx is done.
func (l *CleanLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *CleanLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
