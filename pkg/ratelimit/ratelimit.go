// Package ratelimit implements fixed-window request counting keyed by an
// arbitrary string, usually "<endpoint class>:<client>".
//
// A window opens on the first request for a key and admits Tier.MaxRequests
// requests until Tier.Window has elapsed since it opened; the next request
// after that opens a fresh window. Bucket state lives behind BucketStore so the
// same Limiter runs against process memory or a shared cache.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Clock abstracts time so tests can drive window expiry.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

var ErrInvalidTier = errors.New("ratelimit: invalid tier")

// Tier is the allowance for one endpoint class.
type Tier struct {
	MaxRequests int
	Window      time.Duration
}

func (t Tier) Validate() error {
	if t.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidTier, t.MaxRequests)
	}
	if t.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidTier, t.Window)
	}
	return nil
}

// Bucket is the state of one key after an increment.
type Bucket struct {
	WindowStart time.Time
	Count       int64
}

// BucketStore atomically records one request for key. When no window exists
// for key, or the current one opened at least window ago, the store opens a
// new window at now with a count of 1. Otherwise it increments the count.
// Concurrent increments for the same key must never be lost.
type BucketStore interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Bucket, error)
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed     bool
	Count       int64
	Limit       int
	WindowStart time.Time
	ResetAt     time.Time
}

// Limiter applies tiers to keys.
type Limiter struct {
	store BucketStore
	clock Clock
}

type Option func(*Limiter)

// WithClock overrides the clock used to timestamp requests.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// New returns a limiter backed by store.
func New(store BucketStore, opts ...Option) *Limiter {
	l := &Limiter{store: store, clock: SystemClock}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts the request against key and reports whether it is within the
// tier. Every call counts, including rejected ones, so a client hammering a
// closed window does not get extra attempts once it reopens.
//
// A store error yields an allowed decision together with the error. Callers
// decide whether to log it; the request itself goes through.
func (l *Limiter) Allow(ctx context.Context, key string, tier Tier) (Decision, error) {
	if err := tier.Validate(); err != nil {
		return Decision{Allowed: true, Limit: tier.MaxRequests}, err
	}

	now := l.clock.Now()
	b, err := l.store.Increment(ctx, key, tier.Window, now)
	if err != nil {
		return Decision{Allowed: true, Limit: tier.MaxRequests}, fmt.Errorf("ratelimit: increment %q: %w", key, err)
	}

	return Decision{
		Allowed:     b.Count <= int64(tier.MaxRequests),
		Count:       b.Count,
		Limit:       tier.MaxRequests,
		WindowStart: b.WindowStart,
		ResetAt:     b.WindowStart.Add(tier.Window),
	}, nil
}

// IsAllowed is Allow reduced to a boolean, failing open.
func (l *Limiter) IsAllowed(ctx context.Context, key string, tier Tier) bool {
	d, _ := l.Allow(ctx, key, tier)
	return d.Allowed
}

// Key joins an endpoint class and a client identifier into a bucket key.
func Key(class Class, client string) string {
	return string(class) + ":" + client
}

// ParseTierFromEnv reads RATELIMIT_{prefix}_REQUESTS and
// RATELIMIT_{prefix}_WINDOW_SEC, keeping def for unset or invalid values.
func ParseTierFromEnv(prefix string, def Tier) Tier {
	t := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			t.MaxRequests = n
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			t.Window = time.Duration(sec) * time.Second
		}
	}

	return t
}
