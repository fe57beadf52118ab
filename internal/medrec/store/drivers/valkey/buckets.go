// Package valkey keeps rate-limit buckets in Valkey so every replica of the
// service shares one set of counters.
package valkey

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aussiebroadwan/medrec/pkg/ratelimit"

	valkeygo "github.com/valkey-io/valkey-go"
)

const (
	// DefaultKeyPrefix is prepended to every bucket key.
	DefaultKeyPrefix = "medrec:rl:"

	connectionVerifyTimeout = 5 * time.Second
)

// Config holds connection settings for the bucket store.
type Config struct {
	// Address is the server address, e.g. "localhost:6379". Required.
	Address  string
	Password string
	DB       int

	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string

	TLS    *tls.Config
	Logger *slog.Logger
}

// BucketStore implements ratelimit.BucketStore on top of Valkey. Each bucket
// is a counter key that expires when its window ends.
type BucketStore struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
}

var _ ratelimit.BucketStore = (*BucketStore)(nil)

// luaIncrementWindow increments the bucket counter and starts its expiry on
// the first hit of a window. A counter that somehow lost its TTL is given a
// fresh one so it can never block a client forever.
//
// KEYS[1] = bucket key
// ARGV[1] = window length in milliseconds
//
// Returns {count, remaining ttl in ms}.
const luaIncrementWindow = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// New connects to Valkey and verifies the connection with a PING.
func New(cfg Config) (*BucketStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
		Password:    cfg.Password,
		TLSConfig:   cfg.TLS,
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("connected to valkey rate-limit store", "address", cfg.Address, "db", cfg.DB, "prefix", prefix)

	return &BucketStore{client: client, prefix: prefix, logger: logger}, nil
}

// Increment counts one request against key. The window start is derived from
// the key's remaining TTL, so it is approximate to the millisecond and uses
// the server's clock for expiry.
func (s *BucketStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (ratelimit.Bucket, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		return ratelimit.Bucket{}, fmt.Errorf("%w: window must be at least 1ms", ratelimit.ErrInvalidTier)
	}

	res, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaIncrementWindow).
			Numkeys(1).
			Key(s.prefix+key).
			Arg(strconv.FormatInt(ms, 10)).
			Build(),
	).AsIntSlice()
	if err != nil {
		return ratelimit.Bucket{}, fmt.Errorf("failed to increment bucket: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.Bucket{}, fmt.Errorf("unexpected bucket reply of length %d", len(res))
	}

	remaining := time.Duration(res[1]) * time.Millisecond
	return ratelimit.Bucket{
		WindowStart: now.Add(remaining - window),
		Count:       res[0],
	}, nil
}

// Ping reports whether the server is reachable.
func (s *BucketStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client connection.
func (s *BucketStore) Close() {
	s.client.Close()
	s.logger.Info("valkey rate-limit store closed")
}
