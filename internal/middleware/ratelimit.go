package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig sizes one token bucket per key.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// CleanupInterval is how often, and after how much idleness, buckets
	// are dropped.
	CleanupInterval time.Duration
	// KeyFunc picks the bucket. Defaults to ClientKey.
	KeyFunc func(r *http.Request) string
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{RequestsPerSecond: 10, BurstSize: 20, CleanupInterval: time.Minute, KeyFunc: ClientKey}
}

// StrictRateLimiterConfig is for routes that call the payments provider.
func StrictRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 5, CleanupInterval: time.Minute, KeyFunc: ClientKey}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps an in-process rate.Limiter per key. Limits are not
// shared between instances.
type RateLimiter struct {
	config   RateLimiterConfig
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a background sweep of idle keys; Stop ends it.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go rl.sweepEvery(config.CleanupInterval)
	return rl
}

// Allow spends a token from key's bucket. When the bucket is empty it
// reports how long until one is available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, 0
	}
	if rl.config.RequestsPerSecond <= 0 {
		return false, rl.config.CleanupInterval
	}
	deficit := 1 - v.limiter.TokensAt(now)
	return false, time.Duration(deficit / rl.config.RequestsPerSecond * float64(time.Second))
}

func (rl *RateLimiter) sweepEvery(d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep forgets keys idle past CleanupInterval; their buckets have refilled.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.CleanupInterval)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Stop may be called more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects with 429 and a Retry-After in whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, wait := rl.Allow(rl.config.KeyFunc(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			respondTooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
