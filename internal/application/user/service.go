package user

import (
	"context"
	"io"

	"github.com/contacts-api/internal/domain"
)

type Service interface {
	// UpdateAvatar stores the uploaded image, points the user record at the
	// new URL and drops the cached identity snapshot so the change is visible
	// on the next request rather than after the cache TTL.
	UpdateAvatar(ctx context.Context, u *domain.User, r io.Reader, contentType string) (*domain.User, error)
}

type avatarStore interface {
	UploadAvatar(ctx context.Context, email string, r io.Reader, contentType string) (string, error)
}

type userStore interface {
	UpdateAvatar(ctx context.Context, userID, url string) error
}

type identityInvalidator interface {
	Invalidate(ctx context.Context, email string)
}

type service struct {
	avatars  avatarStore
	users    userStore
	identity identityInvalidator
}

func NewService(avatars avatarStore, users userStore, identity identityInvalidator) Service {
	return &service{avatars: avatars, users: users, identity: identity}
}

func (s *service) UpdateAvatar(ctx context.Context, u *domain.User, r io.Reader, contentType string) (*domain.User, error) {
	url, err := s.avatars.UploadAvatar(ctx, u.Email, r, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateAvatar(ctx, u.UserID, url); err != nil {
		return nil, err
	}
	s.identity.Invalidate(ctx, u.Email)

	out := *u
	out.Avatar = url
	return &out, nil
}
