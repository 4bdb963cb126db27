package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose separates session tokens from password reset tokens.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "password_reset"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified content of a token.
type Claims struct {
	ID          string
	UserID      string
	Email       string
	Purpose     Purpose
	// Fingerprint binds reset tokens to the password hash they were issued against.
	Fingerprint string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type jwtClaims struct {
	UserID      string  `json:"uid"`
	Email       string  `json:"email"`
	Purpose     Purpose `json:"purpose"`
	Fingerprint string  `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	resetTTL   time.Duration
}

func NewTokenManager(secret, issuer string, sessionTTL, resetTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}, nil
}

// Issue signs a token of the given purpose for userID.
func (m *TokenManager) Issue(userID, email string, purpose Purpose, fingerprint string) (string, Claims, error) {
	ttl := m.sessionTTL
	if purpose == PurposeReset {
		ttl = m.resetTTL
	}
	now := time.Now().UTC()
	jti := uuid.NewString()

	cl := jwtClaims{
		UserID:      userID,
		Email:       email,
		Purpose:     purpose,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, toClaims(cl), nil
}

// Parse verifies signature, issuer, expiry and purpose.
func (m *TokenManager) Parse(raw string, want Purpose) (Claims, error) {
	var cl jwtClaims
	tkn, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tkn.Valid {
		return Claims{}, ErrInvalidToken
	}
	if cl.Purpose != want || cl.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return toClaims(cl), nil
}

func toClaims(cl jwtClaims) Claims {
	out := Claims{
		ID:          cl.ID,
		UserID:      cl.UserID,
		Email:       cl.Email,
		Purpose:     cl.Purpose,
		Fingerprint: cl.Fingerprint,
	}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		out.ExpiresAt = cl.ExpiresAt.Time
	}
	return out
}
