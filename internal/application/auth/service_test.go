package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/contacts-api/internal/domain"
	jwtinfra "github.com/contacts-api/internal/infrastructure/jwt"
	"github.com/contacts-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}
func (m *mockUserStore) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error {
	return m.Called(ctx, userID, oldToken, newToken).Error(0)
}
func (m *mockUserStore) ClearRefreshToken(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockUserStore) ConfirmEmail(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) Resolve(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCodec struct{ mock.Mock }

func (m *mockCodec) Issue(subject string, scope jwtinfra.Scope, ttl time.Duration) (string, error) {
	args := m.Called(subject, scope, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockCodec) Decode(token string, expected jwtinfra.Scope) (string, error) {
	args := m.Called(token, expected)
	return args.String(0), args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendVerification(to, username, token, baseURL string) error {
	return m.Called(to, username, token, baseURL).Error(0)
}

// --- helpers ---

func newSvc(us *mockUserStore, idr *mockIdentity, c *mockCodec, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		UserRepo: us,
		Identity: idr,
		Codec:    c,
		Mailer:   ml,
		BaseURL:  "http://localhost:3000",
	})
}

func confirmedUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := password.Hash("pw123456")
	require.NoError(t, err)
	return &domain.User{
		UserID:       "u1",
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: hash,
		Confirmed:    true,
	}
}

// --- Signup ---

func TestSignup_CreatesUnconfirmedUserAndSendsEmail(t *testing.T) {
	us, c, ml := &mockUserStore{}, &mockCodec{}, &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeEmail, time.Duration(0)).Return("email-tok", nil)
	ml.On("SendVerification", "a@x.com", "alice", "email-tok", "http://localhost:3000").Return(nil)

	u, err := newSvc(us, nil, c, ml).Signup(context.Background(), domain.CreateUserRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123456",
	})

	require.NoError(t, err)
	assert.False(t, u.Confirmed)
	assert.Empty(t, u.RefreshToken)
	assert.NotEqual(t, "pw123456", u.PasswordHash)
	assert.True(t, password.Verify("pw123456", u.PasswordHash))
	assert.Contains(t, u.Avatar, "gravatar.com/avatar/")
	ml.AssertExpectations(t)
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newSvc(us, nil, nil, nil).Signup(context.Background(), domain.CreateUserRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123456",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSignup_StorageErrorPropagates(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrStorage)

	_, err := newSvc(us, nil, nil, nil).Signup(context.Background(), domain.CreateUserRequest{
		Username: "alice", Email: "a@x.com", Password: "pw123456",
	})

	assert.ErrorIs(t, err, domain.ErrStorage)
}

// --- Login ---

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(us, nil, nil, nil).Login(context.Background(), "ghost@x.com", "pw123456")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_UnconfirmedEmail(t *testing.T) {
	us := &mockUserStore{}
	u := confirmedUser(t)
	u.Confirmed = false
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)

	_, err := newSvc(us, nil, nil, nil).Login(context.Background(), "a@x.com", "pw123456")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "not confirmed")
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(confirmedUser(t), nil)

	_, err := newSvc(us, nil, nil, nil).Login(context.Background(), "a@x.com", "wrong-password")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	us.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_HappyPathPersistsRefreshToken(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(confirmedUser(t), nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeAccess, time.Duration(0)).Return("access-1", nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeRefresh, time.Duration(0)).Return("refresh-1", nil)
	us.On("SetRefreshToken", mock.Anything, "u1", "refresh-1").Return(nil)

	pair, err := newSvc(us, nil, c, nil).Login(context.Background(), "a@x.com", "pw123456")

	require.NoError(t, err)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)
	us.AssertExpectations(t)
}

// --- Refresh ---

func TestRefresh_RotatesPair(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	u := confirmedUser(t)
	u.RefreshToken = "refresh-1"

	c.On("Decode", "refresh-1", jwtinfra.ScopeRefresh).Return("a@x.com", nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeAccess, time.Duration(0)).Return("access-2", nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeRefresh, time.Duration(0)).Return("refresh-2", nil)
	us.On("RotateRefreshToken", mock.Anything, "u1", "refresh-1", "refresh-2").Return(nil)

	pair, err := newSvc(us, nil, c, nil).Refresh(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, "refresh-2", pair.RefreshToken)
	us.AssertExpectations(t)
}

func TestRefresh_ReplayedTokenForcesLogout(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	u := confirmedUser(t)
	u.RefreshToken = "refresh-2" // already rotated past refresh-1

	c.On("Decode", "refresh-1", jwtinfra.ScopeRefresh).Return("a@x.com", nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	us.On("ClearRefreshToken", mock.Anything, "u1").Return(nil)

	_, err := newSvc(us, nil, c, nil).Refresh(context.Background(), "refresh-1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	us.AssertCalled(t, "ClearRefreshToken", mock.Anything, "u1")
	us.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_InvalidToken(t *testing.T) {
	c := &mockCodec{}
	c.On("Decode", "garbage", jwtinfra.ScopeRefresh).Return("", jwtinfra.ErrInvalidToken)

	_, err := newSvc(nil, nil, c, nil).Refresh(context.Background(), "garbage")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefresh_ConcurrentRotationLoserFails(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	u := confirmedUser(t)
	u.RefreshToken = "refresh-1"

	c.On("Decode", "refresh-1", jwtinfra.ScopeRefresh).Return("a@x.com", nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeAccess, time.Duration(0)).Return("access-2", nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeRefresh, time.Duration(0)).Return("refresh-2", nil)
	// Another request rotated between our read and our conditional write.
	us.On("RotateRefreshToken", mock.Anything, "u1", "refresh-1", "refresh-2").
		Return(fmt.Errorf("refresh token no longer current: %w", domain.ErrUnauthorized))

	_, err := newSvc(us, nil, c, nil).Refresh(context.Background(), "refresh-1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- Confirm ---

func TestConfirm_SetsConfirmed(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	u := confirmedUser(t)
	u.Confirmed = false

	c.On("Decode", "email-tok", jwtinfra.ScopeEmail).Return("a@x.com", nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	us.On("ConfirmEmail", mock.Anything, "u1").Return(nil)

	msg, err := newSvc(us, nil, c, nil).Confirm(context.Background(), "email-tok")

	require.NoError(t, err)
	assert.Equal(t, MsgConfirmed, msg)
	us.AssertExpectations(t)
}

func TestConfirm_AlreadyConfirmedIsIdempotent(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	c.On("Decode", "email-tok", jwtinfra.ScopeEmail).Return("a@x.com", nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(confirmedUser(t), nil)

	svc := newSvc(us, nil, c, nil)
	for i := 0; i < 2; i++ {
		msg, err := svc.Confirm(context.Background(), "email-tok")
		require.NoError(t, err)
		assert.Equal(t, MsgAlreadyConfirmed, msg)
	}
	us.AssertNotCalled(t, "ConfirmEmail", mock.Anything, mock.Anything)
}

func TestConfirm_UnknownSubject(t *testing.T) {
	us, c := &mockUserStore{}, &mockCodec{}
	c.On("Decode", "email-tok", jwtinfra.ScopeEmail).Return("ghost@x.com", nil)
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(us, nil, c, nil).Confirm(context.Background(), "email-tok")

	assert.ErrorIs(t, err, domain.ErrVerification)
}

func TestConfirm_BadToken(t *testing.T) {
	c := &mockCodec{}
	c.On("Decode", "garbage", jwtinfra.ScopeEmail).Return("", jwtinfra.ErrInvalidToken)

	_, err := newSvc(nil, nil, c, nil).Confirm(context.Background(), "garbage")

	assert.ErrorIs(t, err, domain.ErrVerification)
}

// --- ResendVerification ---

func TestResendVerification_UnknownEmailReportsSuccess(t *testing.T) {
	us, ml := &mockUserStore{}, &mockMailer{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	msg, err := newSvc(us, nil, nil, ml).ResendVerification(context.Background(), "ghost@x.com")

	require.NoError(t, err)
	assert.Equal(t, MsgCheckEmail, msg)
	ml.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendVerification_AlreadyConfirmedNeverResends(t *testing.T) {
	us, ml := &mockUserStore{}, &mockMailer{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(confirmedUser(t), nil)

	msg, err := newSvc(us, nil, nil, ml).ResendVerification(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyConfirmed, msg)
	ml.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendVerification_UnconfirmedGetsFreshToken(t *testing.T) {
	us, c, ml := &mockUserStore{}, &mockCodec{}, &mockMailer{}
	u := confirmedUser(t)
	u.Confirmed = false

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(u, nil)
	c.On("Issue", "a@x.com", jwtinfra.ScopeEmail, time.Duration(0)).Return("email-tok-2", nil)
	ml.On("SendVerification", "a@x.com", "alice", "email-tok-2", "http://localhost:3000").Return(nil)

	msg, err := newSvc(us, nil, c, ml).ResendVerification(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, MsgCheckEmail, msg)
	ml.AssertExpectations(t)
}

// --- CurrentUser ---

func TestCurrentUser_ResolvesViaIdentityCache(t *testing.T) {
	idr, c := &mockIdentity{}, &mockCodec{}
	c.On("Decode", "access-1", jwtinfra.ScopeAccess).Return("a@x.com", nil)
	idr.On("Resolve", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)

	u, err := newSvc(nil, idr, c, nil).CurrentUser(context.Background(), "access-1")

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestCurrentUser_WrongScopeRejected(t *testing.T) {
	c := &mockCodec{}
	c.On("Decode", "refresh-1", jwtinfra.ScopeAccess).Return("", jwtinfra.ErrInvalidToken)

	_, err := newSvc(nil, nil, c, nil).CurrentUser(context.Background(), "refresh-1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCurrentUser_UnknownSubject(t *testing.T) {
	idr, c := &mockIdentity{}, &mockCodec{}
	c.On("Decode", "access-1", jwtinfra.ScopeAccess).Return("ghost@x.com", nil)
	idr.On("Resolve", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(nil, idr, c, nil).CurrentUser(context.Background(), "access-1")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
