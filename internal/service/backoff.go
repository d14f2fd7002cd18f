package service

import (
	"math/rand"
	"sync"
	"time"
)

const (
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultBatchSize  = 10
	defaultMaxRetries = 5
)

// BackoffCalculator computes retry delays: exponential growth from a base
// delay, capped at a maximum, with uniform jitter of up to a quarter of the
// capped delay. The final result is clamped to the maximum again, so Delay
// never exceeds it.
type BackoffCalculator struct {
	baseDelay time.Duration
	maxDelay  time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBackoffCalculator constructs a calculator with the given bounds.
// Non-positive values fall back to the defaults (1s base, 30s cap).
func NewBackoffCalculator(baseDelay, maxDelay time.Duration) *BackoffCalculator {
	return newBackoffCalculator(baseDelay, maxDelay, rand.NewSource(time.Now().UnixNano()))
}

// newBackoffCalculator allows a fixed random source for deterministic tests.
func newBackoffCalculator(baseDelay, maxDelay time.Duration, src rand.Source) *BackoffCalculator {
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	return &BackoffCalculator{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		rnd:       rand.New(src),
	}
}

// Delay returns the wait before retry attempt retryAttempt (zero-based):
// min(base * 2^attempt, max) plus jitter in [0, capped/4], clamped to max.
func (b *BackoffCalculator) Delay(retryAttempt int) time.Duration {
	if retryAttempt < 0 {
		retryAttempt = 0
	}

	capped := b.exponential(retryAttempt)

	jitterBound := capped / 4
	var jitter time.Duration
	if jitterBound > 0 {
		b.mu.Lock()
		jitter = time.Duration(b.rnd.Int63n(int64(jitterBound) + 1))
		b.mu.Unlock()
	}

	if delay := capped + jitter; delay < b.maxDelay {
		return delay
	}
	return b.maxDelay
}

// exponential is the deterministic, non-jittered component of Delay: non-
// decreasing in the attempt number and never above the cap.
func (b *BackoffCalculator) exponential(retryAttempt int) time.Duration {
	delay := b.baseDelay
	for i := 0; i < retryAttempt; i++ {
		if delay >= b.maxDelay {
			return b.maxDelay
		}
		delay *= 2
	}
	if delay > b.maxDelay {
		return b.maxDelay
	}
	return delay
}
