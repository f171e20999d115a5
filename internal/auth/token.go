// Package auth implements credential issuance: password-based registration
// and login, plus the stateless access/refresh token lifecycle.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation failures. Exactly one of these is returned for any bad
// token; signature integrity is checked before expiry.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Principal is the identity resolved from a validated token. It is derived
// transiently from token claims and never persisted on its own.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenPair is an access/refresh token pair with the access expiry exposed
// so clients can schedule refreshes.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"-"`
}

// claims embeds the registered claim set and adds the principal fields plus
// a token-type discriminator so a refresh token can never pass as an access
// token (or vice versa).
type claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
}

// TokenManager issues and validates signed HS256 token pairs. The signing
// secret and both lifetimes are injected at construction; validation is
// self-contained and requires no external round-trip, so it is safe for
// unlimited parallel use.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a TokenManager with the given secret and lifetimes.
func NewTokenManager(secret []byte, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue produces a signed access/refresh pair for the principal. The two
// tokens carry independent expiries.
func (m *TokenManager) Issue(p Principal) (TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access, err := m.sign(p, tokenTypeAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(p, tokenTypeRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Validate checks an access token and returns the embedded principal.
// Failures map to ErrTokenSignature, ErrTokenExpired, or ErrTokenMalformed.
func (m *TokenManager) Validate(raw string) (Principal, error) {
	return m.parse(raw, tokenTypeAccess)
}

// Refresh validates a refresh token identically to Validate and issues a
// fresh pair for the same subject. This is a rotation: the superseded
// refresh token stays cryptographically valid until its own expiry, since
// no server-side revocation state is kept.
func (m *TokenManager) Refresh(rawRefresh string) (TokenPair, error) {
	p, err := m.parse(rawRefresh, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return m.Issue(p)
}

func (m *TokenManager) sign(p Principal, typ string, now, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     p.Email,
		Role:      p.Role,
		TokenType: typ,
	})
	return token.SignedString(m.secret)
}

func (m *TokenManager) parse(raw, wantType string) (Principal, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Principal{}, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Principal{}, ErrTokenExpired
		default:
			return Principal{}, ErrTokenMalformed
		}
	}
	if !token.Valid || c.TokenType != wantType || c.Subject == "" {
		return Principal{}, ErrTokenMalformed
	}

	return Principal{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
