package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"unicode"

	"github.com/alexedwards/argon2id"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordWeak     = errors.New("password must contain uppercase, lowercase, number, and special character")
)

const minPasswordLength = 8

// Hasher produces and checks argon2id hashes.
type Hasher struct {
	params *argon2id.Params
}

func NewHasher(p *argon2id.Params) *Hasher {
	if p == nil {
		p = argon2id.DefaultParams
	}
	return &Hasher{params: p}
}

// Hash returns an encoded $argon2id$ string suitable for storage.
func (h *Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, h.params)
}

func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, encoded)
}

// ValidatePassword enforces length and character class rules.
func ValidatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLength {
		return ErrPasswordTooShort
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrPasswordWeak
	}
	return nil
}

// Fingerprint is a short digest of a stored hash, used to expire reset tokens
// once the password changes.
func Fingerprint(encodedHash string) string {
	sum := sha256.Sum256([]byte(encodedHash))
	return hex.EncodeToString(sum[:8])
}
