package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// FixedWindow counts requests per subject in aligned windows of a fixed
// length. Counters live in redis so every API replica shares them.
type FixedWindow struct {
	client    redis.Cmdable
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

func NewFixedWindow(client redis.Cmdable, limit int, window time.Duration, keyPrefix string) (*FixedWindow, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("window must be at least 1ms")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "pixelprops:ratelimit"
	}

	return &FixedWindow{
		client:    client,
		limit:     int64(limit),
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

func (l *FixedWindow) Allow(ctx context.Context, subject string) (Decision, error) {
	now := l.now().UTC()
	start := now.Truncate(l.window)
	key := l.key(subject, start)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("count request: %w", err)
	}

	return l.decide(incr.Val(), start.Add(l.window).Sub(now)), nil
}

func (l *FixedWindow) key(subject string, windowStart time.Time) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	return fmt.Sprintf("%s:%s:%d", l.keyPrefix, subject, windowStart.UnixMilli())
}

func (l *FixedWindow) decide(count int64, untilReset time.Duration) Decision {
	if count > l.limit {
		return Decision{RetryAfter: untilReset}
	}
	return Decision{Allowed: true, Remaining: l.limit - count}
}
