package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/repository"
)

// SignupGate decides who may create an account.
type SignupGate string

const (
	GateAllowlist  SignupGate = "allowlist"
	GateAccessCode SignupGate = "access_code"
	GateBoth       SignupGate = "both"
)

// ResetRequestedMessage is returned for every password reset request so the
// response does not reveal whether an account exists.
const ResetRequestedMessage = "If an account exists for this email, a password reset link has been sent."

type SignUpInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"fullName"`
	AccessCode string `json:"accessCode"`
}

// Session is an issued bearer token.
type Session struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Profile     *model.Profile `json:"profile"`
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, link string, expiresAt time.Time) error
}

// AccountService covers signup, login and password recovery.
type AccountService interface {
	SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error)

	// SignIn reports a wrong email and a wrong password the same way.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// RequestPasswordReset succeeds for unknown emails too. Only rate limiting
	// and malformed input are reported.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes a reset token. A token stops working once the
	// password it was issued against has changed.
	ResetPassword(ctx context.Context, token, password string) error

	Me(ctx context.Context, actor auth.Principal) (*model.Profile, error)

	// SetRole changes a user's role. Admin only; admins cannot demote themselves.
	SetRole(ctx context.Context, actor auth.Principal, userID string, role model.Role) (*model.Profile, error)
}

// AccountConfig holds the onboarding and recovery settings.
type AccountConfig struct {
	Gate       SignupGate
	AccessCode string
	// ResetURL is the page reset links point to.
	ResetURL string
}

type accountService struct {
	profiles  repository.ProfileRepository
	allowlist repository.AuthorizedEmailRepository
	hasher    *auth.Hasher
	tokens    *auth.TokenManager
	limits    AuthRateLimiter
	notifier  ResetNotifier
	audit     audit.Recorder
	cfg       AccountConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewAccountService(
	profiles repository.ProfileRepository,
	allowlist repository.AuthorizedEmailRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	limits AuthRateLimiter,
	notifier ResetNotifier,
	rec audit.Recorder,
	cfg AccountConfig,
	log logrus.FieldLogger,
) AccountService {
	if cfg.Gate == "" {
		cfg.Gate = GateAllowlist
	}
	return &accountService{
		profiles:  profiles,
		allowlist: allowlist,
		hasher:    hasher,
		tokens:    tokens,
		limits:    limits,
		notifier:  notifier,
		audit:     rec,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func clientIP(ctx context.Context) string {
	return audit.OriginFrom(ctx).IP
}

func checkCredentials(email, password string) error {
	if err := auth.ValidateEmail(email); err != nil {
		return invalid("INVALID_EMAIL", "Please enter a valid email address")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return invalid("WEAK_PASSWORD", err.Error())
	}
	return nil
}

func (s *accountService) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := enforce(ctx, s.limits, clientIP(ctx), AuthSignup, email); err != nil {
		return nil, err
	}
	if err := checkCredentials(email, in.Password); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, email, in.AccessCode); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         model.RoleUser,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		p.FullName = &name
	}
	created, err := s.profiles.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

// admit applies the configured signup gate.
func (s *accountService) admit(ctx context.Context, email, code string) error {
	if s.cfg.Gate == GateAccessCode || s.cfg.Gate == GateBoth {
		if s.cfg.AccessCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.AccessCode)) != 1 {
			return ErrInvalidAccessCode
		}
	}
	if s.cfg.Gate == GateAllowlist || s.cfg.Gate == GateBoth {
		ok, err := s.allowlist.Exists(ctx, email)
		if err != nil {
			return fmt.Errorf("check allowlist: %w", err)
		}
		if !ok {
			return ErrSignupNotAuthorized
		}
	}
	return nil
}

func (s *accountService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = auth.NormalizeEmail(email)
	if err := enforce(ctx, s.limits, clientIP(ctx), AuthLogin, email); err != nil {
		return nil, err
	}
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	p, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	ok, err := s.hasher.Verify(password, p.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	raw, claims, err := s.tokens.Issue(p.ID, p.Email, auth.PurposeSession, "")
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt,
		Profile:     p,
	}, nil
}

func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if err := enforce(ctx, s.limits, clientIP(ctx), AuthResetPassword, email); err != nil {
		return err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return invalid("INVALID_EMAIL", "Please enter a valid email address")
	}

	entry := s.log.WithFields(logrus.Fields{"component": "accounts", "email": auth.MaskEmail(email)})
	p, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			entry.WithError(err).Warn("reset lookup failed")
		}
		return nil
	}

	raw, claims, err := s.tokens.Issue(p.ID, p.Email, auth.PurposeReset, auth.Fingerprint(p.PasswordHash))
	if err != nil {
		entry.WithError(err).Warn("reset token issue failed")
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, p.Email, resetLink(s.cfg.ResetURL, raw), claims.ExpiresAt); err != nil {
		entry.WithError(err).Warn("reset notification failed")
	}
	return nil
}

func resetLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func (s *accountService) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.tokens.Parse(token, auth.PurposeReset)
	if err != nil {
		return ErrInvalidToken
	}
	if err := auth.ValidatePassword(password); err != nil {
		return invalid("WEAK_PASSWORD", err.Error())
	}

	p, err := s.profiles.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("find profile: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(auth.Fingerprint(p.PasswordHash))) != 1 {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.profiles.UpdatePassword(ctx, p.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionPasswordReset,
		UserID:       p.ID,
		ResourceType: audit.ResourceProfile,
		ResourceID:   p.ID,
		Details:      map[string]any{"tokenId": claims.ID},
	})
	return nil
}

func (s *accountService) Me(ctx context.Context, actor auth.Principal) (*model.Profile, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	p, err := s.profiles.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return p, nil
}

func (s *accountService) SetRole(ctx context.Context, actor auth.Principal, userID string, role model.Role) (*model.Profile, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if userID == "" {
		return nil, ErrIDRequired
	}
	if !role.Valid() {
		return nil, invalid("INVALID_ROLE", "role must be user or admin")
	}
	if userID == actor.UserID && role != model.RoleAdmin {
		return nil, invalid("SELF_DEMOTION", "admins cannot remove their own admin role")
	}

	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if p.Role == role {
		return p, nil
	}
	if err := s.profiles.SetRole(ctx, p.ID, role); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionRoleChange,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceProfile,
		ResourceID:   p.ID,
		Details:      map[string]any{"from": string(p.Role), "to": string(role)},
	})
	p.Role = role
	return p, nil
}

// LogResetNotifier writes reset links to the log instead of delivering them.
type LogResetNotifier struct {
	Log logrus.FieldLogger
}

// SendPasswordReset logs the masked address at info and the link at debug.
func (n LogResetNotifier) SendPasswordReset(_ context.Context, email, link string, expiresAt time.Time) error {
	n.Log.WithFields(logrus.Fields{
		"component":  "accounts",
		"email":      auth.MaskEmail(email),
		"expires_at": expiresAt.Format(time.RFC3339),
	}).Info("password reset requested")
	n.Log.WithField("link", link).Debug("password reset link")
	return nil
}
