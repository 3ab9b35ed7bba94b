package infrastructure

import (
	"sync"
	"time"
)

// RequestLimiter is a per-key token bucket used to throttle expensive
// actions such as QR generation.
type RequestLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*tokenBucket
	rate        float64 // tokens per second
	maxTokens   float64
	idleTimeout time.Duration
	now         func() time.Time
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRequestLimiter allows perMinute actions per key with the given burst.
func NewRequestLimiter(perMinute float64, burst int) *RequestLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RequestLimiter{
		buckets:     make(map[string]*tokenBucket),
		rate:        perMinute / 60,
		maxTokens:   float64(burst),
		idleTimeout: 10 * time.Minute,
		now:         time.Now,
	}
}

// Allow consumes one token for key when available.
func (rl *RequestLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	bucket, exists := rl.buckets[key]
	if !exists {
		rl.buckets[key] = &tokenBucket{tokens: rl.maxTokens - 1, lastUpdate: now}
		return true
	}

	bucket.tokens += now.Sub(bucket.lastUpdate).Seconds() * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// WaitTime returns how long key has to wait for the next token.
func (rl *RequestLimiter) WaitTime(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	if !exists || rl.rate <= 0 {
		return 0
	}
	current := bucket.tokens + rl.now().Sub(bucket.lastUpdate).Seconds()*rl.rate
	if current >= 1 {
		return 0
	}
	return time.Duration((1 - current) / rl.rate * float64(time.Second))
}

func (rl *RequestLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// sweep drops idle buckets. Caller holds mu.
func (rl *RequestLimiter) sweep(now time.Time) {
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastUpdate) > rl.idleTimeout {
			delete(rl.buckets, key)
		}
	}
}
