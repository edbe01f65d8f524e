package jwtinfra

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contacts-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Scope restricts which operation may accept a token. The three scopes are
// disjoint lanes: a token issued under one scope is never valid under another.
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
	ScopeEmail   Scope = "email_token"
)

// ErrInvalidToken is returned for every decode failure: bad signature,
// malformed token, expired token, or scope mismatch. Callers get no hint
// which check failed; the reason is logged at debug level for diagnosis.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the JWT payload fields.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs under a shared secret.
type Provider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return &Provider{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		emailTTL:   cfg.EmailTokenTTL,
	}, nil
}

// Issue builds and signs a token for subject under the given scope.
// A zero ttl uses the configured default for that scope.
func (p *Provider) Issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = p.defaultTTL(scope)
	}
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Decode verifies the token signature and expiry, checks the scope matches,
// and returns the subject. All failures collapse to ErrInvalidToken.
func (p *Provider) Decode(tokenStr string, expected Scope) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		slog.Debug("token decode failed", "expected_scope", expected, "err", err)
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		slog.Debug("token claims invalid", "expected_scope", expected)
		return "", ErrInvalidToken
	}
	if claims.Scope != expected {
		slog.Debug("token scope mismatch", "expected_scope", expected, "got_scope", claims.Scope)
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		slog.Debug("token has empty subject", "expected_scope", expected)
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (p *Provider) defaultTTL(scope Scope) time.Duration {
	switch scope {
	case ScopeRefresh:
		return p.refreshTTL
	case ScopeEmail:
		return p.emailTTL
	default:
		return p.accessTTL
	}
}
