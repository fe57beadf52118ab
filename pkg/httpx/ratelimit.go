package httpx

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/medrec/pkg/ratelimit"
	"github.com/aussiebroadwan/medrec/pkg/slogx"
	"golang.org/x/time/rate"
)

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID, client ID, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys requests by client address.
func IPKeyExtractor(trustProxy bool) KeyExtractor {
	return func(r *http.Request) string {
		return ClientIP(r, trustProxy)
	}
}

// RateLimitHooks observe limiter outcomes, typically to feed metrics.
type RateLimitHooks struct {
	OnReject     func(class ratelimit.Class)
	OnStoreError func(err error)

	// Reject writes the 429. Nil writes the default rate_limit_exceeded body.
	Reject http.HandlerFunc
}

// RateLimitMiddleware classifies each request path through policy and counts
// it against "<class>:<client>". A request over its tier gets a 429 with a
// fixed body and no hint about when the window reopens.
//
// Limiter errors admit the request. The warning for them is throttled so a
// bucket-store outage does not flood the log.
func RateLimitMiddleware(
	limiter *ratelimit.Limiter,
	policy ratelimit.Policy,
	keyExtractor KeyExtractor,
	hooks RateLimitHooks,
) Middleware {
	storeErrLog := &rate.Sometimes{First: 1, Interval: 30 * time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			client := keyExtractor(r)
			if client == "" {
				client = "unknown"
			}

			class, tier := policy.Classify(r.URL.Path)
			decision, err := limiter.Allow(ctx, ratelimit.Key(class, client), tier)
			if err != nil {
				storeErrLog.Do(func() {
					log.Warn("rate limit: store unavailable, allowing request", "err", err)
				})
				if hooks.OnStoreError != nil {
					hooks.OnStoreError(err)
				}
			}

			if !decision.Allowed {
				log.Warn("rate limit exceeded",
					"class", class,
					"client", client,
					"count", decision.Count,
					"limit", decision.Limit,
				)
				if hooks.OnReject != nil {
					hooks.OnReject(class)
				}

				if hooks.Reject != nil {
					hooks.Reject(w, r)
					return
				}
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
