package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// fixedWindowScript increments the counter and starts the window on first hit.
// Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { count, ttl }
`)

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// RateLimitService limits booking requests per user with a Redis fixed window.
// With no Redis client, or when Redis fails, requests are allowed.
type RateLimitService struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *logrus.Logger
}

// NewRateLimitService creates a limiter allowing limit requests per window
func NewRateLimitService(client redis.Scripter, limit int, window time.Duration, logger *logrus.Logger) *RateLimitService {
	return &RateLimitService{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:booking:",
		logger: logger,
	}
}

// Allow records one request for key and returns *RateLimitError once the
// window's budget is spent
func (s *RateLimitService) Allow(ctx context.Context, key string) error {
	if s == nil || s.client == nil || s.limit <= 0 {
		return nil
	}

	vals, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + key}, s.window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 2 {
		s.logger.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing request")
		return nil
	}

	count, ttlMs := vals[0], vals[1]
	if count <= int64(s.limit) {
		return nil
	}

	retryAfter := time.Duration(ttlMs) * time.Millisecond
	if retryAfter <= 0 {
		retryAfter = s.window
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many booking requests. Please try again in %d seconds", int(retryAfter.Round(time.Second).Seconds())),
		RetryAfter: retryAfter,
	}
}
