package middleware

// In-memory token-bucket limiting for the console API. Buckets are kept per
// client, entity kind and traffic class, so a burst of tour approvals does not
// starve article browsing and reads never spend the tighter write budget.
//
// The limiter is process-local and meant for abuse and backend cost control;
// it is not an authorization mechanism.

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// keyFunc selects the client identity part of a bucket key.
type keyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the client address. The operator header is
// deliberately not used: a client could rotate it to mint fresh buckets.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// Limit is one token bucket's shape.
type Limit struct {
	RPS   float64 // tokens per second; 0 leaves only the initial burst
	Burst int     // values <= 0 are coerced to 1
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	Read  Limit   // list, detail, selection and session routes
	Write Limit   // admin actions and edit submissions
	Key   keyFunc // defaults to KeyByClientIP
}

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	},
	[]string{"kind", "class"},
)

func init() { prometheus.MustRegister(rateLimited) }

// visitor holds one bucket and the last time it was used.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-(client, kind, class) token-bucket limiter. Idle
// buckets are evicted opportunistically. Safe for concurrent use.
type RateLimiter struct {
	read, write Limit
	keyFn       keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
	now      func() time.Time
}

// NewRateLimiter builds a limiter from opts.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Read.Burst <= 0 {
		opts.Read.Burst = 1
	}
	if opts.Write.Burst <= 0 {
		opts.Write.Burst = 1
	}
	if opts.Key == nil {
		opts.Key = KeyByClientIP()
	}
	return &RateLimiter{
		read:     opts.Read,
		write:    opts.Write,
		keyFn:    opts.Key,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

// bucketKey scopes the client identity to the route's kind and class.
func bucketKey(id string, r Route) string {
	return id + "|" + r.KindLabel() + "|" + r.Class()
}

// getVisitor returns the bucket for key, creating it with lim if absent.
// Every 5000 lookups idle buckets are evicted, before the requested one is
// touched so a stale bucket is dropped even when it is the one asked for.
func (rl *RateLimiter) getVisitor(key string, lim Limit) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(rate.Limit(lim.RPS), lim.Burst)
	rl.visitors[key] = &visitor{limiter: l, lastSeen: now}
	return l
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed operation.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limits. Replays skip limiting. Rejected requests get
// 429 with the standard error envelope and a Retry-After computed from the
// bucket's refill time.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		route := RouteOf(c)
		lim := rl.read
		if route.Write() {
			lim = rl.write
		}
		bucket := rl.getVisitor(bucketKey(rl.keyFn(c), route), lim)

		now := rl.now()
		if bucket.AllowN(now, 1) {
			c.Next()
			return
		}

		rateLimited.WithLabelValues(route.KindLabel(), route.Class()).Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfter(bucket, now)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "too many " + route.Class() + " requests for " + route.KindLabel() + "; retry later",
		})
	}
}

// retryAfter is the whole seconds until bucket holds a token again, at least
// 1. Buckets that never refill report a minute.
func retryAfter(bucket *rate.Limiter, now time.Time) int {
	res := bucket.ReserveN(now, 1)
	if !res.OK() {
		return 60
	}
	d := res.DelayFrom(now)
	res.CancelAt(now)
	if d == rate.InfDuration {
		return 60
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
