package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradorr/api/internal/config"
	"tradorr/api/internal/events"
	"tradorr/api/internal/google"
	"tradorr/api/internal/ids"
	"tradorr/api/internal/models"
	"tradorr/api/internal/repository"
	"tradorr/api/internal/security"
)

var (
	// ErrMissingCredentials is the local validation failure for empty
	// email or password; no provider call is made.
	ErrMissingCredentials = errors.New("email and password required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
)

// UserStore and SessionStore are satisfied by the repository types.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpsertGoogle(ctx context.Context, sub string, email string, displayName string) (models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByDevice(ctx context.Context, userID string, deviceID string) error
}

// IdentityVerifier checks federated sign-in tokens.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (google.Profile, error)
}

// Entitlements is the slice of the entitlement service the auth flow
// touches: the starter grant on first sign-up.
type Entitlements interface {
	InitStarter(ctx context.Context, userID string) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

type AuthService struct {
	users        UserStore
	sessions     SessionStore
	verifier     IdentityVerifier
	entitlements Entitlements
	bus          Publisher
	cfg          *config.AppConfig
	log          zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	verifier IdentityVerifier,
	entitlements Entitlements,
	bus Publisher,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		verifier:     verifier,
		entitlements: entitlements,
		bus:          bus,
		cfg:          cfg,
		log:          log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	DeviceID    string
	IPAddress   string
	UserAgent   string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
	DeviceID     string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	if err := s.entitlements.InitStarter(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("starter grant failed")
	}

	return s.createSession(ctx, user, input.DeviceID, input.IPAddress, input.UserAgent)
}

type LoginInput struct {
	Email     string
	Password  string
	DeviceID  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.createSession(ctx, user, input.DeviceID, input.IPAddress, input.UserAgent)
}

type GoogleLoginInput struct {
	IDToken   string
	DeviceID  string
	IPAddress string
	UserAgent string
}

// LoginGoogle verifies the provider-issued ID token and signs the mapped
// account in, creating it on first use.
func (s *AuthService) LoginGoogle(ctx context.Context, input GoogleLoginInput) (AuthResult, error) {
	if input.IDToken == "" {
		return AuthResult{}, ErrMissingCredentials
	}

	profile, err := s.verifier.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("google token rejected")
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.UpsertGoogle(ctx, profile.Sub, strings.ToLower(profile.Email), profile.Name)
	if err != nil {
		return AuthResult{}, err
	}
	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	if err := s.entitlements.InitStarter(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("starter grant failed")
	}

	return s.createSession(ctx, user, input.DeviceID, input.IPAddress, input.UserAgent)
}

func (s *AuthService) createSession(ctx context.Context, user models.User, deviceID string, ipAddress string, userAgent string) (AuthResult, error) {
	if deviceID == "" {
		deviceID = ids.New()
	}

	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		DeviceID:         deviceID,
		RefreshTokenHash: refreshHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        time.Now().Add(s.cfg.Security.JWTRefreshTTL),
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID,
		session.ID,
		deviceID,
		string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeSignedIn,
		UserID: user.ID,
		Data: map[string]any{
			"deviceId": deviceID,
		},
	})

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     deviceID,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.Security.MaxSessions {
		return nil
	}

	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.Security.MaxSessions)
}

type RefreshInput struct {
	UserID       string
	RefreshToken string
	DeviceID     string
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	refreshHash := security.HashRefreshToken(input.RefreshToken)
	session, err := s.sessions.FindByRefreshHash(ctx, input.UserID, refreshHash)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	refreshToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = time.Now().Add(s.cfg.Security.JWTRefreshTTL)

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID,
		session.ID,
		session.DeviceID,
		string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     session.DeviceID,
	}, nil
}

// Logout never fails: the durable session marker is removed best-effort
// and any store error is logged rather than surfaced.
func (s *AuthService) Logout(ctx context.Context, userID string, deviceID string) {
	if err := s.sessions.DeleteByDevice(ctx, userID, deviceID); err != nil {
		s.log.Warn().Err(err).
			Str("user_id", userID).
			Str("device_id", deviceID).
			Msg("session delete failed")
	}

	s.bus.Publish(ctx, events.Event{
		Type:   events.TypeSignedOut,
		UserID: userID,
		Data: map[string]any{
			"deviceId": deviceID,
		},
	})
}
