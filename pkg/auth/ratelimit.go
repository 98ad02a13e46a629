package auth

import (
	"context"
	"sync"
	"time"

	"github.com/mkirkeby/opgave/pkg/identity"
)

// RateLimiter checks whether a request should be allowed based on the
// principal's role.
type RateLimiter interface {
	Allow(ctx context.Context, p *identity.Principal) error
}

// RoleConfig holds rate limit settings for a role.
type RoleConfig struct {
	RequestsPerMinute int
}

// InProcessLimiter is a simple fixed-window rate limiter that tracks
// request counts per principal in memory.
type InProcessLimiter struct {
	roles      map[identity.Role]RoleConfig
	defaultRPM int
	mu         sync.Mutex
	counters   map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a rate limiter with per-role configuration.
func NewInProcessLimiter(roles map[identity.Role]RoleConfig, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		roles:      roles,
		defaultRPM: defaultRPM,
		counters:   make(map[string]*counter),
	}
}

// Allow checks if the request is within the rate limit.
// Fails open: any internal error allows the request.
func (l *InProcessLimiter) Allow(_ context.Context, p *identity.Principal) error {
	rpm := l.defaultRPM
	if rc, ok := l.roles[p.Role]; ok {
		rpm = rc.RequestsPerMinute
	}

	if rpm <= 0 {
		return nil // no limit
	}

	key := p.ID + ":" + string(p.Role)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		// New window.
		l.counters[key] = &counter{count: 1, windowAt: now}
		return nil
	}

	c.count++
	if c.count > rpm {
		return ErrTooManyRequests
	}

	return nil
}

// sweep drops counters whose window has passed so the map stays bounded
// by the number of principals active in the last minute. Caller holds mu.
func (l *InProcessLimiter) sweep(now time.Time) {
	for key, c := range l.counters {
		if now.Sub(c.windowAt) >= time.Minute {
			delete(l.counters, key)
		}
	}
}
