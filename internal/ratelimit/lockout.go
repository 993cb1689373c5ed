// Package ratelimit throttles repeated login failures per username.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	platformredis "intia/internal/platform/redis"
)

const (
	// DefaultMaxFailures locks a username after this many consecutive
	// failed logins within the window.
	DefaultMaxFailures = 5
	// DefaultWindow is how long failures are counted and how long a
	// lockout lasts.
	DefaultWindow = 15 * time.Minute
)

// Lockout counts failed logins in redis. A nil Lockout, or one built
// without redis, is a no-op so the service degrades rather than refusing
// logins when redis is down or not configured.
type Lockout struct {
	client      *platformredis.Client
	maxFailures int
	window      time.Duration
}

func NewLockout(client *platformredis.Client, maxFailures int, window time.Duration) *Lockout {
	if client == nil {
		return nil
	}
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Lockout{client: client, maxFailures: maxFailures, window: window}
}

func key(username string) string {
	return "login_failures:" + username
}

// IsLocked reports whether the username has exceeded the failure budget.
func (l *Lockout) IsLocked(ctx context.Context, username string) (bool, error) {
	if l == nil {
		return false, nil
	}
	count, err := l.client.Get(ctx, key(username)).Int()
	if err != nil {
		// Missing key or redis trouble both mean "not locked".
		return false, nil
	}
	return count >= l.maxFailures, nil
}

// RecordFailure increments the failure counter and refreshes its TTL.
func (l *Lockout) RecordFailure(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	k := key(username)
	if err := l.client.Incr(ctx, k).Err(); err != nil {
		return fmt.Errorf("increment login failures: %w", err)
	}
	if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
		return fmt.Errorf("expire login failures: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *Lockout) Reset(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	if err := l.client.Del(ctx, key(username)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}
