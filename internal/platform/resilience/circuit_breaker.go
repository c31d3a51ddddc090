package resilience

import (
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
)

var ErrBreakerOpen = crerr.New("circuit breaker is open")

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker counts consecutive dependency failures. Once the threshold is hit
// calls are rejected until the cooldown elapses, then a single probe decides
// whether to close again. A disabled breaker allows every call.
type Breaker struct {
	mu sync.Mutex

	enabled   bool
	threshold int
	cooldown  time.Duration

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg = NormalizeBreakerConfig(cfg)
	return &Breaker{
		enabled:   cfg.Enabled,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

func (b *Breaker) Allow() error {
	if !b.enabled {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
	}
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker. Only
// failures classified as dependency failures should be passed as failed=true.
func (b *Breaker) Record(failed bool) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.state = BreakerClosed
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.probing = false
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
