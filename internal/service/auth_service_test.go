package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradorr/api/internal/config"
	"tradorr/api/internal/events"
	"tradorr/api/internal/google"
	"tradorr/api/internal/models"
	"tradorr/api/internal/repository"
	"tradorr/api/internal/security"
)

type userStoreMock struct {
	mock.Mock
}

func (m *userStoreMock) Create(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userStoreMock) FindByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *userStoreMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *userStoreMock) UpsertGoogle(ctx context.Context, sub string, email string, displayName string) (models.User, error) {
	args := m.Called(ctx, sub, email, displayName)
	return args.Get(0).(models.User), args.Error(1)
}

type sessionStoreMock struct {
	mock.Mock
}

func (m *sessionStoreMock) Create(ctx context.Context, session models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *sessionStoreMock) FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error) {
	args := m.Called(ctx, userID, refreshHash)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *sessionStoreMock) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *sessionStoreMock) DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error {
	args := m.Called(ctx, userID, keepLatest)
	return args.Error(0)
}

func (m *sessionStoreMock) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *sessionStoreMock) DeleteByDevice(ctx context.Context, userID string, deviceID string) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

type verifierMock struct {
	mock.Mock
}

func (m *verifierMock) VerifyIDToken(ctx context.Context, token string) (google.Profile, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(google.Profile), args.Error(1)
}

type entitlementsMock struct {
	mock.Mock
}

func (m *entitlementsMock) InitStarter(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type busRecorder struct {
	published []events.Event
}

func (b *busRecorder) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret: "unit-test-secret",
			JWTAccessTTL:    15 * time.Minute,
			JWTRefreshTTL:   720 * time.Hour,
			MaxSessions:     5,
		},
	}
}

type authFixture struct {
	users    *userStoreMock
	sessions *sessionStoreMock
	verifier *verifierMock
	ents     *entitlementsMock
	bus      *busRecorder
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    &userStoreMock{},
		sessions: &sessionStoreMock{},
		verifier: &verifierMock{},
		ents:     &entitlementsMock{},
		bus:      &busRecorder{},
	}
	f.svc = NewAuthService(f.users, f.sessions, f.verifier, f.ents, f.bus, testConfig(), zerolog.Nop())
	return f
}

func TestRegisterMissingCredentials(t *testing.T) {
	f := newAuthFixture()

	for _, input := range []RegisterInput{
		{Email: "", Password: "secret123"},
		{Email: "a@b.c", Password: ""},
		{Email: "   ", Password: ""},
	} {
		_, err := f.svc.Register(context.Background(), input)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}

	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.bus.published)
}

func TestRegisterEmailTaken(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "taken@example.com").
		Return(models.User{ID: "u1", Email: "taken@example.com"}, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "Taken@Example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterHappyPath(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "new@example.com").
		Return(models.User{}, repository.ErrUserNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" &&
			u.Role == models.UserRoleUser &&
			u.Status == models.UserStatusActive &&
			len(u.PasswordHash) > 0
	})).Return(nil)
	f.ents.On("InitStarter", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CountByUser", mock.Anything, mock.Anything).Return(1, nil)

	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    " New@Example.com ",
		Password: "secret123",
		DeviceID: "dev-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "dev-1", result.DeviceID)

	claims, err := security.ParseAccessToken(result.AccessToken, "unit-test-secret")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "dev-1", claims.DeviceID)

	f.ents.AssertCalled(t, "InitStarter", mock.Anything, result.User.ID)
	require.Len(t, f.bus.published, 1)
	assert.Equal(t, events.TypeSignedIn, f.bus.published[0].Type)
}

func TestRegisterSurvivesStarterGrantFailure(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, mock.Anything).
		Return(models.User{}, repository.ErrUserNotFound)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.ents.On("InitStarter", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CountByUser", mock.Anything, mock.Anything).Return(1, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "new@example.com",
		Password: "secret123",
	})
	assert.NoError(t, err)
}

func TestLoginMissingCredentials(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := security.HashPassword("right-password")
	require.NoError(t, err)

	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "user@example.com").
		Return(models.User{
			ID: "u1", Email: "user@example.com",
			PasswordHash: hash, Status: models.UserStatusActive,
		}, nil)

	_, err = f.svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, mock.Anything).
		Return(models.User{}, repository.ErrUserNotFound)

	_, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "whatever1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuspendedUser(t *testing.T) {
	hash, err := security.HashPassword("secret123")
	require.NoError(t, err)

	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "user@example.com").
		Return(models.User{
			ID: "u1", Email: "user@example.com",
			PasswordHash: hash, Status: models.UserStatusSuspended,
		}, nil)

	_, err = f.svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserSuspended)
}

func TestLoginHappyPathGeneratesDeviceID(t *testing.T) {
	hash, err := security.HashPassword("secret123")
	require.NoError(t, err)

	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "user@example.com").
		Return(models.User{
			ID: "u1", Email: "user@example.com",
			PasswordHash: hash, Status: models.UserStatusActive,
		}, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CountByUser", mock.Anything, "u1").Return(1, nil)

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.DeviceID)
}

func TestLoginGoogleRejectedToken(t *testing.T) {
	f := newAuthFixture()
	f.verifier.On("VerifyIDToken", mock.Anything, "bad-token").
		Return(google.Profile{}, errors.New("signature mismatch"))

	_, err := f.svc.LoginGoogle(context.Background(), GoogleLoginInput{IDToken: "bad-token"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	f.users.AssertNotCalled(t, "UpsertGoogle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginGoogleHappyPath(t *testing.T) {
	f := newAuthFixture()
	f.verifier.On("VerifyIDToken", mock.Anything, "good-token").
		Return(google.Profile{Sub: "g-123", Email: "Fed@Example.com", Name: "Fed User"}, nil)
	f.users.On("UpsertGoogle", mock.Anything, "g-123", "fed@example.com", "Fed User").
		Return(models.User{ID: "u2", Email: "fed@example.com", Status: models.UserStatusActive}, nil)
	f.ents.On("InitStarter", mock.Anything, "u2").Return(nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CountByUser", mock.Anything, "u2").Return(1, nil)

	result, err := f.svc.LoginGoogle(context.Background(), GoogleLoginInput{IDToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, "u2", result.User.ID)
	require.Len(t, f.bus.published, 1)
	assert.Equal(t, events.TypeSignedIn, f.bus.published[0].Type)
}

func TestSessionLimitEnforced(t *testing.T) {
	hash, err := security.HashPassword("secret123")
	require.NoError(t, err)

	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, mock.Anything).
		Return(models.User{
			ID: "u1", Email: "user@example.com",
			PasswordHash: hash, Status: models.UserStatusActive,
		}, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("CountByUser", mock.Anything, "u1").Return(6, nil)
	f.sessions.On("DeleteOldestSessions", mock.Anything, "u1", 5).Return(nil)

	_, err = f.svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	f.sessions.AssertCalled(t, "DeleteOldestSessions", mock.Anything, "u1", 5)
}

func TestLogoutNeverFails(t *testing.T) {
	f := newAuthFixture()
	f.sessions.On("DeleteByDevice", mock.Anything, "u1", "dev-1").
		Return(errors.New("store offline"))

	f.svc.Logout(context.Background(), "u1", "dev-1")

	require.Len(t, f.bus.published, 1)
	assert.Equal(t, events.TypeSignedOut, f.bus.published[0].Type)
	assert.Equal(t, "dev-1", f.bus.published[0].Data["deviceId"])
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture()

	refreshToken := "old-refresh-token"
	oldHash := security.HashRefreshToken(refreshToken)

	f.users.On("GetByID", mock.Anything, "u1").
		Return(models.User{ID: "u1", Status: models.UserStatusActive}, nil)
	f.sessions.On("FindByRefreshHash", mock.Anything, "u1", oldHash).
		Return(models.Session{
			ID: "s1", UserID: "u1", DeviceID: "dev-1",
			RefreshTokenHash: oldHash,
			ExpiresAt:        time.Now().Add(time.Hour),
		}, nil)
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s models.Session) bool {
		return s.ID == "s1" && string(s.RefreshTokenHash) != string(oldHash)
	})).Return(nil)

	result, err := f.svc.Refresh(context.Background(), RefreshInput{
		UserID:       "u1",
		DeviceID:     "dev-1",
		RefreshToken: refreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, refreshToken, result.RefreshToken)
	f.sessions.AssertExpectations(t)
}

func TestRefreshExpiredSessionDeleted(t *testing.T) {
	f := newAuthFixture()

	refreshToken := "stale-token"
	hash := security.HashRefreshToken(refreshToken)

	f.users.On("GetByID", mock.Anything, "u1").
		Return(models.User{ID: "u1", Status: models.UserStatusActive}, nil)
	f.sessions.On("FindByRefreshHash", mock.Anything, "u1", hash).
		Return(models.Session{
			ID: "s1", UserID: "u1", DeviceID: "dev-1",
			ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)
	f.sessions.On("DeleteByID", mock.Anything, "s1").Return(nil)

	_, err := f.svc.Refresh(context.Background(), RefreshInput{
		UserID:       "u1",
		DeviceID:     "dev-1",
		RefreshToken: refreshToken,
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	f.sessions.AssertCalled(t, "DeleteByID", mock.Anything, "s1")
}

func TestRefreshDeviceMismatch(t *testing.T) {
	f := newAuthFixture()

	refreshToken := "token"
	hash := security.HashRefreshToken(refreshToken)

	f.users.On("GetByID", mock.Anything, "u1").
		Return(models.User{ID: "u1", Status: models.UserStatusActive}, nil)
	f.sessions.On("FindByRefreshHash", mock.Anything, "u1", hash).
		Return(models.Session{
			ID: "s1", UserID: "u1", DeviceID: "dev-other",
			ExpiresAt: time.Now().Add(time.Hour),
		}, nil)

	_, err := f.svc.Refresh(context.Background(), RefreshInput{
		UserID:       "u1",
		DeviceID:     "dev-1",
		RefreshToken: refreshToken,
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
