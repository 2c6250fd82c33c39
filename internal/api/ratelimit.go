package api

import (
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/metrics"
)

// OwnerLimiter keeps a token bucket per owner in a bounded LRU. An evicted owner
// starts again with a full bucket.
type OwnerLimiter struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *rate.Limiter]
	every rate.Limit
	burst int
}

// NewOwnerLimiter allows perMinute requests per owner with a burst of the same size.
// A non-positive perMinute disables limiting.
func NewOwnerLimiter(perMinute, owners int) (*OwnerLimiter, error) {
	if owners <= 0 {
		owners = 1024
	}
	c, err := lru.New[string, *rate.Limiter](owners)
	if err != nil {
		return nil, err
	}
	l := &OwnerLimiter{cache: c, every: rate.Inf, burst: 0}
	if perMinute > 0 {
		l.every = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l, nil
}

// Allow consumes one token from owner's bucket.
func (l *OwnerLimiter) Allow(owner string) bool {
	if l.every == rate.Inf {
		return true
	}
	l.mu.Lock()
	lim, ok := l.cache.Get(owner)
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.cache.Add(owner, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Middleware rejects over-limit requests with 429. route labels the rejection metric.
func (l *OwnerLimiter) Middleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(auth.OwnerFrom(r.Context())) {
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			w.Header().Set("Retry-After", "60")
			respond.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
