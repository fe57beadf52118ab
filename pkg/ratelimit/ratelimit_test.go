package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter() (*ratelimit.Limiter, *fakeClock, *ratelimit.MemoryStore) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	store := ratelimit.NewMemoryStore()
	return ratelimit.New(store, ratelimit.WithClock(clock)), clock, store
}

func TestLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l, clock, _ := newLimiter()
	tier := ratelimit.Tier{MaxRequests: 5, Window: time.Hour}

	for i := 1; i <= 5; i++ {
		d, err := l.Allow(ctx, "auth:1.2.3.4", tier)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.EqualValues(t, i, d.Count)
	}

	d, err := l.Allow(ctx, "auth:1.2.3.4", tier)
	require.NoError(t, err)
	require.False(t, d.Allowed, "sixth request must be rejected")
	require.Equal(t, clock.Now().Add(time.Hour), d.ResetAt)

	clock.Advance(3599 * time.Second)
	require.False(t, l.IsAllowed(ctx, "auth:1.2.3.4", tier), "window still open at 3599s")

	clock.Advance(time.Second)
	d, err = l.Allow(ctx, "auth:1.2.3.4", tier)
	require.NoError(t, err)
	require.True(t, d.Allowed, "window elapsed at 3600s")
	require.EqualValues(t, 1, d.Count)
	require.Equal(t, clock.Now(), d.WindowStart)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLimiter()
	tier := ratelimit.Tier{MaxRequests: 1, Window: time.Minute}

	require.True(t, l.IsAllowed(ctx, "auth:a", tier))
	require.False(t, l.IsAllowed(ctx, "auth:a", tier))
	require.True(t, l.IsAllowed(ctx, "auth:b", tier))
	require.True(t, l.IsAllowed(ctx, "general:a", tier))
}

func TestLimiter_ConcurrentCountsAreExact(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLimiter()
	tier := ratelimit.Tier{MaxRequests: 50, Window: time.Hour}

	const goroutines = 20
	const perGoroutine = 10

	var mu sync.Mutex
	allowed := 0

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				if l.IsAllowed(ctx, "general:shared", tier) {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 50, allowed)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration, time.Time) (ratelimit.Bucket, error) {
	return ratelimit.Bucket{}, errors.New("connection refused")
}

func TestLimiter_StoreErrorFailsOpen(t *testing.T) {
	l := ratelimit.New(failingStore{})

	d, err := l.Allow(context.Background(), "auth:x", ratelimit.AuthTier)
	require.Error(t, err)
	require.True(t, d.Allowed)
	require.True(t, l.IsAllowed(context.Background(), "auth:x", ratelimit.AuthTier))
}

func TestLimiter_InvalidTier(t *testing.T) {
	l, _, _ := newLimiter()

	_, err := l.Allow(context.Background(), "k", ratelimit.Tier{MaxRequests: 0, Window: time.Second})
	require.ErrorIs(t, err, ratelimit.ErrInvalidTier)

	_, err = l.Allow(context.Background(), "k", ratelimit.Tier{MaxRequests: 1})
	require.ErrorIs(t, err, ratelimit.ErrInvalidTier)
}

func TestPolicy_Classify(t *testing.T) {
	p := ratelimit.DefaultPolicy(ratelimit.UploadTier, ratelimit.AuthTier, ratelimit.GeneralTier)
	require.NoError(t, p.Validate())

	tests := []struct {
		path  string
		class ratelimit.Class
		max   int
	}{
		{"/documents/upload", ratelimit.ClassUpload, 10},
		{"/documents/upload/batch", ratelimit.ClassUpload, 10},
		{"/auth/login", ratelimit.ClassAuth, 5},
		{"/auth/register", ratelimit.ClassAuth, 5},
		{"/auth", ratelimit.ClassGeneral, 1000},
		{"/audit/logs", ratelimit.ClassGeneral, 1000},
		{"/documents", ratelimit.ClassGeneral, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			class, tier := p.Classify(tt.path)
			require.Equal(t, tt.class, class)
			require.Equal(t, tt.max, tier.MaxRequests)
			require.Equal(t, time.Hour, tier.Window)
		})
	}
}

func TestPolicy_ValidateRejectsMissingTier(t *testing.T) {
	p := ratelimit.DefaultPolicy(ratelimit.UploadTier, ratelimit.AuthTier, ratelimit.GeneralTier)
	delete(p.Tiers, ratelimit.ClassAuth)
	require.ErrorIs(t, p.Validate(), ratelimit.ErrInvalidTier)
}

func TestKey(t *testing.T) {
	require.Equal(t, "auth:10.0.0.1", ratelimit.Key(ratelimit.ClassAuth, "10.0.0.1"))
}

func TestParseTierFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "7")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "60")
	tier := ratelimit.ParseTierFromEnv("TEST", ratelimit.AuthTier)
	require.Equal(t, ratelimit.Tier{MaxRequests: 7, Window: time.Minute}, tier)

	t.Setenv("RATELIMIT_BAD_REQUESTS", "-1")
	t.Setenv("RATELIMIT_BAD_WINDOW_SEC", "abc")
	require.Equal(t, ratelimit.AuthTier, ratelimit.ParseTierFromEnv("BAD", ratelimit.AuthTier))
}
