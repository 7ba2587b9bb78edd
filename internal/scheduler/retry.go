// Package scheduler runs the periodic notification retry sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/notify"
)

// Retrier is the slice of the dispatcher the sweep drives.
type Retrier interface {
	RetryFailed(ctx context.Context, opts notify.RetryOptions) (notify.RetryResult, error)
	ResendStalePending(ctx context.Context, opts notify.StaleOptions) (notify.RetryResult, error)
}

// Locker grants a lease to at most one holder at a time.
type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// SweepConfig tunes the retry sweep.
type SweepConfig struct {
	Spec         string        // cron spec, e.g. "@every 10m"
	WindowHours  int           // failed bookings younger than this are retried
	Limit        int           // max items per pass
	PendingAfter time.Duration // pending older than this counts as lost
	Timeout      time.Duration // upper bound for a single pass
}

// RetrySweep retries failed and stuck confirmations on a cron schedule.
type RetrySweep struct {
	cfg    SweepConfig
	retry  Retrier
	locker Locker
	log    *zap.Logger
	cron   *cron.Cron
}

const sweepLockKey = "lock:notification-sweep"

// NewRetrySweep builds a sweep.  A nil locker runs every pass locally,
// which is correct for a single instance.
func NewRetrySweep(cfg SweepConfig, retry Retrier, locker Locker, log *zap.Logger) *RetrySweep {
	if cfg.Spec == "" {
		cfg.Spec = "@every 10m"
	}
	if cfg.PendingAfter <= 0 {
		cfg.PendingAfter = notify.DefaultPendingAge
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetrySweep{cfg: cfg, retry: retry, locker: locker, log: log.Named("retry-sweep")}
}

// Start schedules the sweep.  Passes never overlap.
func (s *RetrySweep) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Info("retry sweep scheduled", zap.String("spec", s.cfg.Spec))
	return nil
}

// Stop unschedules the sweep and waits for a running pass to end.
func (s *RetrySweep) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce performs a single pass: failed confirmations first, then ones
// stuck in pending.
func (s *RetrySweep) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.Acquire(ctx, sweepLockKey, token, s.cfg.Timeout)
		if err != nil {
			s.log.Warn("sweep lock unavailable, running unguarded", zap.Error(err))
		} else if !ok {
			s.log.Debug("sweep held by another instance")
			return
		} else {
			defer func() { _ = s.locker.Release(context.Background(), sweepLockKey, token) }()
		}
	}

	failed, err := s.retry.RetryFailed(ctx, notify.RetryOptions{WindowHours: s.cfg.WindowHours, Limit: s.cfg.Limit})
	if err != nil {
		s.log.Error("retry failed notifications", zap.Error(err))
	}
	stale, err := s.retry.ResendStalePending(ctx, notify.StaleOptions{
		Age:         s.cfg.PendingAfter,
		WindowHours: s.cfg.WindowHours,
		Limit:       s.cfg.Limit,
	})
	if err != nil {
		s.log.Error("resend stale notifications", zap.Error(err))
	}
	s.log.Info("sweep finished",
		zap.Int("failed_attempted", failed.Attempted), zap.Int("failed_succeeded", failed.Succeeded),
		zap.Int("stale_attempted", stale.Attempted), zap.Int("stale_succeeded", stale.Succeeded))
}

// RedisLocker implements Locker with SET NX and a compare-and-delete script.
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker returns a locker backed by rdb.
func NewRedisLocker(rdb *redis.Client) *RedisLocker { return &RedisLocker{rdb: rdb} }

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, token, ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
