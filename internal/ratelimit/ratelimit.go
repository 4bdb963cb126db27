// Package ratelimit implements fixed-window attempt counters.
//
// A key is counted once per Allow call inside the window that contains "now".
// The counter backends increment atomically, so concurrent requests against
// the same key never both observe the last free slot.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Counter atomically increments the attempt count of key within the window
// starting at windowStart and returns the new value.
type Counter interface {
	Hit(ctx context.Context, key string, windowStart time.Time, window time.Duration) (int64, error)
}

// Rule is a fixed-window budget.
type Rule struct {
	MaxAttempts int
	Window      time.Duration
}

// Scaled returns the rule with MaxAttempts multiplied by factor.
func (r Rule) Scaled(factor int) Rule {
	return Rule{MaxAttempts: r.MaxAttempts * factor, Window: r.Window}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
	// Degraded is set when the counter failed and a fail-open limiter let the request through.
	Degraded bool
}

// Limiter applies rules to keys on top of a Counter.
type Limiter struct {
	counter   Counter
	failOpen  bool
	log       logrus.FieldLogger
	now       func() time.Time
	decisions *prometheus.CounterVec
}

type Option func(*Limiter)

// WithFailOpen makes counter errors allow the request instead of failing it.
func WithFailOpen(v bool) Option { return func(l *Limiter) { l.failOpen = v } }

func WithLogger(log logrus.FieldLogger) Option { return func(l *Limiter) { l.log = log } }

func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// WithMetrics counts decisions in ratelimit_decisions_total{scope,outcome}.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limit decisions by scope and outcome.",
		}, []string{"scope", "outcome"})
		if err := reg.Register(vec); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				vec = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				return
			}
		}
		l.decisions = vec
	}
}

func NewLimiter(c Counter, opts ...Option) *Limiter {
	l := &Limiter{
		counter: c,
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// FailOpen reports the limiter's failure policy.
func (l *Limiter) FailOpen() bool { return l.failOpen }

// Allow counts one attempt for scope:key and reports whether it fits rule.
// Attempts are counted even when they are rejected.
func (l *Limiter) Allow(ctx context.Context, scope, key string, rule Rule) (Decision, error) {
	if rule.MaxAttempts <= 0 || rule.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid rate limit rule for %s", scope)
	}

	now := l.now()
	windowStart := now.Truncate(rule.Window)
	fullKey := scope + ":" + key

	count, err := l.counter.Hit(ctx, fullKey, windowStart, rule.Window)
	if err != nil {
		l.observe(scope, "error")
		if l.failOpen {
			l.log.WithFields(logrus.Fields{
				"component": "ratelimit",
				"scope":     scope,
			}).WithError(err).Warn("rate limit counter unavailable, allowing request")
			return Decision{Allowed: true, Limit: rule.MaxAttempts, Degraded: true}, nil
		}
		return Decision{Limit: rule.MaxAttempts}, fmt.Errorf("rate limit %s: %w", scope, err)
	}

	d := Decision{
		Allowed: count <= int64(rule.MaxAttempts),
		Count:   count,
		Limit:   rule.MaxAttempts,
	}
	if d.Allowed {
		l.observe(scope, "allowed")
	} else {
		d.RetryAfter = windowStart.Add(rule.Window).Sub(now)
		l.observe(scope, "blocked")
	}
	return d, nil
}

func (l *Limiter) observe(scope, outcome string) {
	if l.decisions != nil {
		l.decisions.WithLabelValues(scope, outcome).Inc()
	}
}
