package service

import (
	"context"
	"fmt"
	"time"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/ratelimit"
)

// AuthAction is a rate-limited authentication step.
type AuthAction string

const (
	AuthLogin         AuthAction = "login"
	AuthSignup        AuthAction = "signup"
	AuthResetPassword AuthAction = "reset_password"
)

// emailLimitFactor widens the per-email budget relative to the per-IP one.
const emailLimitFactor = 2

const maskedEmail = "***masked***"

// DefaultAuthRules are the per-IP budgets; the per-email budget is twice as large.
func DefaultAuthRules() map[AuthAction]ratelimit.Rule {
	return map[AuthAction]ratelimit.Rule{
		AuthLogin:         {MaxAttempts: 5, Window: 15 * time.Minute},
		AuthSignup:        {MaxAttempts: 3, Window: 60 * time.Minute},
		AuthResetPassword: {MaxAttempts: 3, Window: 60 * time.Minute},
	}
}

type AuthLimitRequest struct {
	Action AuthAction `json:"action"`
	Email  string     `json:"email,omitempty"`
}

type AuthLimitVerdict struct {
	Allowed    bool          `json:"allowed"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

// AuthRateLimiter gates authentication attempts by client IP and by email.
type AuthRateLimiter interface {
	// Check counts one attempt. Unknown actions return ErrUnknownAction.
	Check(ctx context.Context, ip string, req AuthLimitRequest) (*AuthLimitVerdict, error)
}

type authRateLimiter struct {
	limiter *ratelimit.Limiter
	audit   audit.Recorder
	rules   map[AuthAction]ratelimit.Rule
}

func NewAuthRateLimiter(limiter *ratelimit.Limiter, rec audit.Recorder, rules map[AuthAction]ratelimit.Rule) AuthRateLimiter {
	if rules == nil {
		rules = DefaultAuthRules()
	}
	return &authRateLimiter{limiter: limiter, audit: rec, rules: rules}
}

func (a *authRateLimiter) Check(ctx context.Context, ip string, req AuthLimitRequest) (*AuthLimitVerdict, error) {
	rule, ok := a.rules[req.Action]
	if !ok {
		return nil, ErrUnknownAction
	}
	if ip == "" {
		ip = "unknown"
	}
	minutes := int(rule.Window / time.Minute)

	d, err := a.limiter.Allow(ctx, "auth_"+string(req.Action)+"_ip", ip, rule)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		v := &AuthLimitVerdict{
			Error:      fmt.Sprintf("Too many %s attempts. Try again in %d minutes.", req.Action, minutes),
			RetryAfter: d.RetryAfter,
		}
		a.record(ctx, req, false, "rate_limit_exceeded")
		return v, nil
	}

	if req.Email != "" {
		d, err := a.limiter.Allow(ctx, "auth_"+string(req.Action)+"_email", auth.HashEmail(req.Email), rule.Scaled(emailLimitFactor))
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			v := &AuthLimitVerdict{
				Error:      fmt.Sprintf("Too many attempts for this email. Try again in %d minutes.", minutes),
				RetryAfter: d.RetryAfter,
			}
			a.record(ctx, req, false, "rate_limit_exceeded")
			return v, nil
		}
	}

	a.record(ctx, req, true, "")
	return &AuthLimitVerdict{Allowed: true, Message: "Action allowed"}, nil
}

func (a *authRateLimiter) record(ctx context.Context, req AuthLimitRequest, success bool, reason string) {
	details := map[string]any{"success": success, "email": nil}
	if req.Email != "" {
		details["email"] = maskedEmail
	}
	if reason != "" {
		details["error"] = map[string]any{"reason": reason}
	}
	a.audit.Record(ctx, audit.Event{
		Action:       "auth_" + string(req.Action),
		ResourceType: audit.ResourceAuth,
		Details:      details,
	})
}

// enforce is Check for in-process callers: a rejection becomes *RateLimitError.
func enforce(ctx context.Context, limits AuthRateLimiter, ip string, action AuthAction, email string) error {
	v, err := limits.Check(ctx, ip, AuthLimitRequest{Action: action, Email: email})
	if err != nil {
		return err
	}
	if !v.Allowed {
		return &RateLimitError{Message: v.Error, RetryAfter: v.RetryAfter}
	}
	return nil
}
