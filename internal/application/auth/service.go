package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contacts-api/internal/domain"
	jwtinfra "github.com/contacts-api/internal/infrastructure/jwt"
	"github.com/contacts-api/internal/infrastructure/smtp"
	"github.com/contacts-api/internal/pkg/gravatar"
	"github.com/contacts-api/internal/pkg/id"
	"github.com/contacts-api/internal/pkg/password"
)

// Messages returned by the confirmation endpoints. The wording mirrors what
// clients already display, so it is part of the API surface.
const (
	MsgAlreadyConfirmed = "Your email is already confirmed"
	MsgConfirmed        = "Email was confirmed"
	MsgCheckEmail       = "Check your email for confirmation"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service interface {
	Signup(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, email, plainPassword string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Confirm(ctx context.Context, token string) (string, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	CurrentUser(ctx context.Context, bearer string) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	ConfirmEmail(ctx context.Context, userID string) error
}

type identityResolver interface {
	Resolve(ctx context.Context, email string) (*domain.User, error)
}

type tokenCodec interface {
	Issue(subject string, scope jwtinfra.Scope, ttl time.Duration) (string, error)
	Decode(token string, expected jwtinfra.Scope) (string, error)
}

type service struct {
	users    userStore
	identity identityResolver
	codec    tokenCodec
	mailer   smtp.Mailer
	baseURL  string
}

type ServiceDeps struct {
	UserRepo userStore
	Identity identityResolver
	Codec    tokenCodec
	Mailer   smtp.Mailer
	BaseURL  string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:    deps.UserRepo,
		identity: deps.Identity,
		codec:    deps.Codec,
		mailer:   deps.Mailer,
		baseURL:  deps.BaseURL,
	}
}

func (s *service) Signup(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, fmt.Errorf("account already exists: %w", domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Avatar:       gravatar.URL(req.Email),
		Confirmed:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}

	s.sendVerification(u)
	return u, nil
}

func (s *service) Login(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid email: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.Confirmed {
		return nil, fmt.Errorf("email is not confirmed: %w", domain.ErrUnauthorized)
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return nil, fmt.Errorf("invalid password: %w", domain.ErrUnauthorized)
	}

	pair, err := s.issuePair(u.Email)
	if err != nil {
		return nil, err
	}
	// Overwrites any previous refresh token: at most one live per user.
	if err := s.users.SetRefreshToken(ctx, u.UserID, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	email, err := s.codec.Decode(refreshToken, jwtinfra.ScopeRefresh)
	if err != nil {
		return nil, fmt.Errorf("could not validate credentials: %w", domain.ErrUnauthorized)
	}
	// The refresh token is checked against the live store, never the cache:
	// a stale cached value here would defeat reuse detection.
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("could not validate credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if u.RefreshToken != refreshToken {
		// A valid but superseded token means it leaked or was replayed.
		// Force a fresh login on every device.
		if clearErr := s.users.ClearRefreshToken(ctx, u.UserID); clearErr != nil {
			slog.Warn("failed to clear refresh token after reuse", "user_id", u.UserID, "err", clearErr)
		}
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}

	pair, err := s.issuePair(u.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.RotateRefreshToken(ctx, u.UserID, refreshToken, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *service) Confirm(ctx context.Context, token string) (string, error) {
	email, err := s.codec.Decode(token, jwtinfra.ScopeEmail)
	if err != nil {
		return "", fmt.Errorf("invalid token for email verification: %w", domain.ErrVerification)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("verification error: %w", domain.ErrVerification)
		}
		return "", err
	}
	if u.Confirmed {
		return MsgAlreadyConfirmed, nil
	}
	if err := s.users.ConfirmEmail(ctx, u.UserID); err != nil {
		return "", err
	}
	return MsgConfirmed, nil
}

func (s *service) ResendVerification(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same message as the happy path so the endpoint does not
			// confirm whether an account exists.
			return MsgCheckEmail, nil
		}
		return "", err
	}
	if u.Confirmed {
		return MsgAlreadyConfirmed, nil
	}
	s.sendVerification(u)
	return MsgCheckEmail, nil
}

func (s *service) CurrentUser(ctx context.Context, bearer string) (*domain.User, error) {
	email, err := s.codec.Decode(bearer, jwtinfra.ScopeAccess)
	if err != nil {
		return nil, fmt.Errorf("could not validate credentials: %w", domain.ErrUnauthorized)
	}
	u, err := s.identity.Resolve(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("could not validate credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) issuePair(email string) (*TokenPair, error) {
	access, err := s.codec.Issue(email, jwtinfra.ScopeAccess, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(email, jwtinfra.ScopeRefresh, 0)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// sendVerification issues a fresh email-scope token and hands it to the
// mailer. Each call produces a new token with a new expiry; the old link
// keeps working until its own expiry.
func (s *service) sendVerification(u *domain.User) {
	token, err := s.codec.Issue(u.Email, jwtinfra.ScopeEmail, 0)
	if err != nil {
		slog.Warn("failed to issue verification token", "user_id", u.UserID, "err", err)
		return
	}
	if err := s.mailer.SendVerification(u.Email, u.Username, token, s.baseURL); err != nil {
		slog.Warn("failed to send verification email", "user_id", u.UserID, "err", err)
	}
}
