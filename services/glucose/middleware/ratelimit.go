// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limiting
// =============================================================================

// RateLimiterConfig configures the per-client rate limiter.
type RateLimiterConfig struct {
	// RequestsPerSecond is the sustained rate allowed per client IP.
	// Default: 20
	RequestsPerSecond float64

	// Burst is the momentary burst allowed per client IP.
	// Default: 40
	Burst int

	// ClientTTL is how long an idle client's bucket is kept before
	// being swept. Default: 10 minutes
	ClientTTL time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		ClientTTL:         10 * time.Minute,
	}
}

// clientBucket pairs a limiter with its last-seen time for sweeping.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token bucket.
//
// # Thread Safety
//
// Safe for concurrent use. The bucket map is guarded by a mutex;
// individual limiters are internally synchronized.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	config  RateLimiterConfig
}

// NewRateLimiter creates a RateLimiter with the given config, applying
// defaults to zero fields.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.ClientTTL <= 0 {
		config.ClientTTL = defaults.ClientTTL
	}
	return &RateLimiter{
		clients: make(map[string]*clientBucket),
		config:  config,
	}
}

// allow reports whether the client may proceed, creating its bucket on
// first sight and sweeping idle buckets opportunistically.
func (rl *RateLimiter) allow(clientIP string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[clientIP]
	if !ok {
		b = &clientBucket{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.clients[clientIP] = b
		rl.sweepLocked(now)
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// sweepLocked drops buckets idle past the TTL (must hold lock).
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for ip, b := range rl.clients {
		if now.Sub(b.lastSeen) > rl.config.ClientTTL {
			delete(rl.clients, ip)
		}
	}
}

// Middleware returns the gin handler enforcing the limit. Rejected
// requests receive 429 with a JSON error body.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
