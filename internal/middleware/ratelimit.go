package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/clinic-booking/internal/config"
)

// tokenBucket refills a per-key bucket and takes one token.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * refill_tokens)
    last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles requests per client IP and route with a Redis token
// bucket.  Without Redis, or when a Redis call fails, the same bucket is
// kept in process memory instead.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	local := newLocalBuckets(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := strings.Join([]string{cfg.Prefix, "ip", ip, "route", c.Request().Method + " " + c.Path()}, ":")

			var (
				allowed    bool
				remaining  int64
				retryAfter time.Duration
				fromRedis  bool
			)
			if rdb != nil {
				vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
					time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
					cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second)).Int64Slice()
				if err == nil && len(vals) == 3 {
					allowed, remaining, retryAfter = vals[0] == 1, vals[1], time.Duration(vals[2])*time.Millisecond
					fromRedis = true
				} else {
					c.Logger().Warnf("ratelimit: script failed for %s, using local bucket: %v", key, err)
				}
			}
			if !fromRedis {
				allowed, remaining, retryAfter = local.take(key, time.Now())
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"code":        "too_many_requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// localBuckets holds one rate.Limiter per key.  Keys idle for longer than
// the configured TTL are dropped on a later call.
type localBuckets struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	entries   map[string]*localBucket
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	refill := cfg.RefillTokens
	if refill < 1 {
		refill = 1
	}
	return &localBuckets{
		limit:   rate.Every(cfg.RefillInterval / time.Duration(refill)),
		burst:   cfg.Capacity,
		ttl:     cfg.TTL,
		entries: make(map[string]*localBucket),
	}
}

// take spends one token for key and reports whether it was available, the
// tokens left and how long until the next one.
func (b *localBuckets) take(key string, now time.Time) (bool, int64, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= b.ttl {
		for k, e := range b.entries {
			if now.Sub(e.seen) >= b.ttl {
				delete(b.entries, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.entries[key]
	if !ok {
		e = &localBucket{lim: rate.NewLimiter(b.limit, b.burst)}
		b.entries[key] = e
	}
	e.seen = now

	if e.lim.AllowN(now, 1) {
		return true, int64(e.lim.TokensAt(now)), 0
	}
	r := e.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, 0, wait
}
