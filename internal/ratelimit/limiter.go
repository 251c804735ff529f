// Package ratelimit throttles public application submissions with
// hourly and daily windows. Counters live in memory and are flushed to
// bbolt so a restart does not reset them.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/orangehats/orangehats/internal/config"
	"github.com/orangehats/orangehats/internal/metrics"
)

var bucketRateLimits = []byte("rate_limits")

// Level is the scope a limit applies to
type Level string

const (
	LevelGlobal Level = "global"
	LevelIP     Level = "ip"
	LevelKind   Level = "kind"
)

// Config contains rate limit configuration. A nil limit is not enforced.
type Config struct {
	// Global caps all submissions together
	Global *LimitConfig

	// PerIP caps submissions from one client address
	PerIP *LimitConfig

	// PerKind caps one client address per application kind
	PerKind *LimitConfig

	FlushInterval time.Duration
}

// LimitConfig contains rate limit values. Zero disables a window.
type LimitConfig struct {
	PerHour int `json:"per_hour"`
	PerDay  int `json:"per_day"`
}

// FromConfig builds the limiter configuration from the applications
// section. Windows left at zero are not enforced.
func FromConfig(rl config.RateLimitConfig) *Config {
	cfg := &Config{
		PerIP: &LimitConfig{PerHour: rl.PerHour, PerDay: rl.PerDay},
	}
	if rl.Global.Enforced() {
		cfg.Global = &LimitConfig{PerHour: rl.Global.PerHour, PerDay: rl.Global.PerDay}
	}
	if rl.PerKind.Enforced() {
		cfg.PerKind = &LimitConfig{PerHour: rl.PerKind.PerHour, PerDay: rl.PerKind.PerDay}
	}
	return cfg
}

// Counter tracks one key's windows
type Counter struct {
	HourlyCount int       `json:"hourly_count"`
	DailyCount  int       `json:"daily_count"`
	HourStart   time.Time `json:"hour_start"`
	DayStart    time.Time `json:"day_start"`
}

type Limiter struct {
	db       *bolt.DB
	config   *Config
	logger   *slog.Logger
	counters map[string]*Counter
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewLimiter loads persisted counters and starts the flush loop
func NewLimiter(db *bolt.DB, cfg *Config, logger *slog.Logger) (*Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRateLimits)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limits bucket: %w", err)
	}

	l := &Limiter{
		db:       db,
		config:   cfg,
		logger:   logger.With("component", "ratelimit"),
		counters: make(map[string]*Counter),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	if err := l.loadCounters(); err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	go l.persistLoop()

	return l, nil
}

// Request identifies a submission
type Request struct {
	IP   string
	Kind string
}

// Result contains the rate limit decision
type Result struct {
	Allowed    bool
	DeniedBy   Level
	DeniedKey  string
	RetryAfter time.Duration
}

// Allow checks every applicable limit and, when all pass, counts the submission
func (l *Limiter) Allow(ctx context.Context, req *Request) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	checks := l.getChecks(req)

	for _, check := range checks {
		counter := l.getOrCreateCounter(check.key, now)
		resetExpired(counter, now)

		if res := deny(check, counter.HourlyCount, counter.DailyCount, counter, now); res != nil {
			metrics.IncRateLimitExceeded(string(check.level))
			l.logger.Warn("rate limit exceeded", "level", check.level, "key", check.key, "retry_after", res.RetryAfter)
			return res, nil
		}
	}

	for _, check := range checks {
		counter := l.counters[check.key]
		counter.HourlyCount++
		counter.DailyCount++
	}

	return &Result{Allowed: true}, nil
}

// Stop ends the flush loop and persists counters one last time
func (l *Limiter) Stop() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	return l.persistCounters()
}

type limitCheck struct {
	level Level
	key   string
	limit *LimitConfig
}

func deny(check limitCheck, hourly, daily int, counter *Counter, now time.Time) *Result {
	if check.limit.PerHour > 0 && hourly >= check.limit.PerHour {
		return &Result{
			DeniedBy:   check.level,
			DeniedKey:  check.key,
			RetryAfter: counter.HourStart.Add(time.Hour).Sub(now),
		}
	}
	if check.limit.PerDay > 0 && daily >= check.limit.PerDay {
		return &Result{
			DeniedBy:   check.level,
			DeniedKey:  check.key,
			RetryAfter: counter.DayStart.Add(24 * time.Hour).Sub(now),
		}
	}
	return nil
}

func (l *Limiter) getChecks(req *Request) []limitCheck {
	var checks []limitCheck

	if l.config.Global != nil {
		checks = append(checks, limitCheck{
			level: LevelGlobal,
			key:   makeKey(LevelGlobal, "global"),
			limit: l.config.Global,
		})
	}

	if req.IP != "" && l.config.PerIP != nil {
		checks = append(checks, limitCheck{
			level: LevelIP,
			key:   makeKey(LevelIP, req.IP),
			limit: l.config.PerIP,
		})
	}

	if req.IP != "" && req.Kind != "" && l.config.PerKind != nil {
		checks = append(checks, limitCheck{
			level: LevelKind,
			key:   makeKey(LevelKind, req.Kind+"/"+req.IP),
			limit: l.config.PerKind,
		})
	}

	return checks
}

func (l *Limiter) getOrCreateCounter(key string, now time.Time) *Counter {
	counter, exists := l.counters[key]
	if !exists {
		counter = &Counter{HourStart: now, DayStart: now}
		l.counters[key] = counter
	}
	return counter
}

func resetExpired(counter *Counter, now time.Time) {
	if now.Sub(counter.HourStart) >= time.Hour {
		counter.HourlyCount = 0
		counter.HourStart = now
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		counter.DailyCount = 0
		counter.DayStart = now
	}
}

func (l *Limiter) loadCounters() error {
	return l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var counter Counter
			if err := json.Unmarshal(v, &counter); err != nil {
				l.logger.Warn("skipping corrupt counter", "key", string(k), "error", err)
				return nil
			}
			l.counters[string(k)] = &counter
			return nil
		})
	})
}

// persistCounters writes live counters and drops those whose day has ended
func (l *Limiter) persistCounters() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRateLimits)
		if bucket == nil {
			return nil
		}

		for key, counter := range l.counters {
			if now.Sub(counter.DayStart) >= 24*time.Hour {
				delete(l.counters, key)
				if err := bucket.Delete([]byte(key)); err != nil {
					return err
				}
				continue
			}

			data, err := json.Marshal(counter)
			if err != nil {
				continue
			}
			if err := bucket.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *Limiter) persistLoop() {
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.persistCounters(); err != nil {
				l.logger.Error("failed to persist counters", "error", err)
			}
		}
	}
}

func makeKey(level Level, key string) string {
	return string(level) + ":" + key
}
