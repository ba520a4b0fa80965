package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenKindMismatch     = errors.New("unexpected token type")
)

// Claims is shared by access and refresh tokens; only TokenType and the
// lifetime differ.
type Claims struct {
	TokenType TokenKind `json:"token_type"`
	SessionID uint      `json:"sid"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	now      func() time.Time
}

type JWTOption func(*JWTManager)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewJWTManager(issuer, audience, secret string, opts ...JWTOption) *JWTManager {
	m := &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *JWTManager) Issue(kind TokenKind, subjectEmail string, sessionID uint, ttl time.Duration) (string, error) {
	return m.IssueAt(kind, subjectEmail, sessionID, m.now(), ttl)
}

// IssueAt signs a token issued at now. Claims carry whole seconds, so exp is
// now+ttl truncated to the second.
func (m *JWTManager) IssueAt(kind TokenKind, subjectEmail string, sessionID uint, now time.Time, ttl time.Duration) (string, error) {
	if sessionID == 0 {
		return "", fmt.Errorf("issue %s token: session id is required", kind)
	}
	claims := Claims{
		TokenType: kind,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subjectEmail,
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks signature, structure, issuer, audience and expiry.
// A token is expired only when exp is strictly before now.
func (m *JWTManager) Verify(raw string) (*Claims, error) {
	claims, err := m.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt.Time.Before(m.now()) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (m *JWTManager) VerifyAccess(raw string) (*Claims, error) {
	return m.verifyKind(raw, AccessToken)
}

func (m *JWTManager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verifyKind(raw, RefreshToken)
}

// SessionIDForRevocation returns the sid claim of a correctly signed token
// without looking at its expiry. Logout is its only caller: ending a session
// must work with an access token that has already expired. Never use it to
// authorize anything.
func (m *JWTManager) SessionIDForRevocation(raw string) (uint, error) {
	claims, err := m.parse(raw)
	if err != nil {
		return 0, err
	}
	return claims.SessionID, nil
}

func (m *JWTManager) verifyKind(raw string, kind TokenKind) (*Claims, error) {
	claims, err := m.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != kind {
		return nil, fmt.Errorf("%w: %s", ErrTokenKindMismatch, claims.TokenType)
	}
	return claims, nil
}

// parse validates signature and structure only. Time based claims are checked
// by the callers so the expiry boundary stays under our control.
func (m *JWTManager) parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMalformed
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, classifyParseError(err)
	}
	if claims.Issuer != m.issuer || !audienceContains(claims.Audience, m.audience) {
		return nil, ErrTokenSignatureInvalid
	}
	if claims.SessionID == 0 || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
