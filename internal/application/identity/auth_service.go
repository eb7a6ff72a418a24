package identity

import (
	"context"
	"errors"
	"time"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/freightport/backend/internal/infrastructure/wechat"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthServiceConfig bounds password guessing.
type AuthServiceConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{MaxLoginAttempts: 5, LockDuration: 15 * time.Minute}
}

// WechatSessions exchanges a mini-program login code for the user's open id
type WechatSessions interface {
	Code2Session(ctx context.Context, code string) (*wechat.Session, error)
}

var errWechatDisabled = shared.NewDomainError("SERVICE_UNAVAILABLE", "WeChat login is not enabled")

// AuthService covers login, token lifecycle and the caller's own profile.
type AuthService struct {
	users       identity.UserRepository
	tokens      *auth.JWTService
	revocations auth.Revocations
	wechat      WechatSessions
	config      AuthServiceConfig
	logger      *zap.Logger
}

// NewAuthService wires the service. revocations and wx may be nil.
func NewAuthService(
	users identity.UserRepository,
	tokens *auth.JWTService,
	revocations auth.Revocations,
	wx WechatSessions,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	def := DefaultAuthServiceConfig()
	if config.MaxLoginAttempts <= 0 {
		config.MaxLoginAttempts = def.MaxLoginAttempts
	}
	if config.LockDuration <= 0 {
		config.LockDuration = def.LockDuration
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		wechat:      wx,
		config:      config,
		logger:      logger,
	}
}

// Register creates an active customer account with no company.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*UserDTO, error) {
	user, err := identity.NewCustomer(in.Username, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, user.Username, user.Email); err != nil {
		return nil, err
	}
	if in.DisplayName != "" || in.Phone != "" {
		if err := user.UpdateProfile(in.DisplayName, user.Email, in.Phone, ""); err != nil {
			return nil, err
		}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("customer registered", zap.Stringer("user_id", user.ID), zap.String("username", user.Username))
	return userDTO(user), nil
}

func (s *AuthService) ensureUnique(ctx context.Context, username, email string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	}
	return s.ensureEmailFree(ctx, email)
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	}
	return nil
}

// Login checks the password. Repeated failures lock the account for
// LockDuration; an unknown username is indistinguishable from a bad password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	log := s.logger.With(zap.String("username", in.Username))

	user, err := s.users.FindByUsername(ctx, in.Username)
	if shared.IsNotFound(err) {
		log.Warn("login for unknown user")
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.admit(user); err != nil {
		log.Warn("login rejected", zap.String("status", string(user.Status)))
		return nil, err
	}

	if !user.VerifyPassword(in.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.users.Update(ctx, user); err != nil {
			log.Error("persist login failure", zap.Error(err))
		}
		if locked {
			log.Warn("account locked", zap.Int("attempts", user.FailedAttempts))
			return nil, identity.ErrAccountLocked
		}
		log.Warn("wrong password", zap.Int("failed_attempts", user.FailedAttempts))
		return nil, identity.ErrInvalidCredentials
	}
	return s.openSession(ctx, user, in.IP)
}

// WechatLogin logs in the account bound to the mini-program user behind code
func (s *AuthService) WechatLogin(ctx context.Context, in WechatLoginInput) (*Session, error) {
	if s.wechat == nil {
		return nil, errWechatDisabled
	}
	ws, err := s.wechat.Code2Session(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByWechatOpenID(ctx, ws.OpenID)
	if shared.IsNotFound(err) {
		return nil, identity.ErrWechatNotBound
	}
	if err != nil {
		return nil, err
	}
	if err := s.admit(user); err != nil {
		return nil, err
	}
	return s.openSession(ctx, user, in.IP)
}

// BindWechat links the caller to the mini-program user behind code. Binding
// the same WeChat user again is a no-op.
func (s *AuthService) BindWechat(ctx context.Context, actor shared.Actor, code string) (*UserDTO, error) {
	if s.wechat == nil {
		return nil, errWechatDisabled
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	ws, err := s.wechat.Code2Session(ctx, code)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByWechatOpenID(ctx, ws.OpenID)
	switch {
	case err == nil && owner.ID != user.ID:
		return nil, identity.ErrWechatAlreadyBound
	case err == nil:
		return userDTO(user), nil
	case !shared.IsNotFound(err):
		return nil, err
	}

	if err := user.BindWechat(ws.OpenID); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("wechat bound", zap.Stringer("user_id", user.ID))
	return userDTO(user), nil
}

// admit rejects disabled and locked accounts. An expired lock is lifted.
func (s *AuthService) admit(user *identity.User) error {
	switch {
	case user.IsDisabled():
		return identity.ErrAccountDisabled
	case user.IsLocked():
		return identity.ErrAccountLocked
	case user.Status == identity.UserStatusLocked:
		return user.Unlock()
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user *identity.User, ip string) (*Session, error) {
	pair, err := s.tokens.GenerateTokenPair(subjectOf(user))
	if err != nil {
		s.logger.Error("issue tokens", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess(ip)
	if err := s.users.Update(ctx, user); err != nil {
		// the pair is already valid
		s.logger.Error("persist login success", zap.Error(err))
	}
	s.logger.Info("user logged in", zap.Stringer("user_id", user.ID), zap.String("username", user.Username))
	return newSession(pair, user), nil
}

// Refresh exchanges a refresh token for a new pair. Role and company are
// re-read so a promotion or onboarding shows up without a fresh login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("refresh token rejected", zap.Error(err))
		return nil, mapTokenError(err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, identity.ErrTokenInvalid
	}
	if s.revocations != nil {
		revoked, err := s.revocations.UserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, identity.ErrTokenInvalid
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if shared.IsNotFound(err) {
		return nil, identity.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if err := s.admit(user); err != nil {
		return nil, err
	}

	pair, err := s.tokens.Refresh(claims, subjectOf(user))
	if err != nil {
		return nil, mapTokenError(err)
	}
	return newSession(pair, user), nil
}

// Logout revokes the access token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return mapTokenError(err)
	}
	ttl := claims.RemainingTTL()
	if s.revocations == nil || ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("revoke token", zap.Error(err))
		return err
	}
	s.logger.Info("user logged out", zap.String("user_id", claims.UserID))
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, actor shared.Actor) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return userDTO(user), nil
}

// UpdateProfile rejects an email already held by another account.
func (s *AuthService) UpdateProfile(ctx context.Context, actor shared.Actor, in UpdateProfileInput) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, in.Email); err != nil {
			return nil, err
		}
	}
	if err := user.UpdateProfile(in.DisplayName, in.Email, in.Phone, in.Avatar); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return userDTO(user), nil
}

// ChangePassword revokes every token issued before the change.
func (s *AuthService) ChangePassword(ctx context.Context, actor shared.Actor, in ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(in.OldPassword, in.NewPassword); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if s.revocations != nil {
		if err := s.revocations.RevokeUser(ctx, user.ID.String(), s.tokens.RefreshTokenExpiration()); err != nil {
			s.logger.Warn("revoke sessions after password change", zap.Error(err))
		}
	}
	s.logger.Info("password changed", zap.Stringer("user_id", user.ID))
	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return identity.ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return identity.ErrTokenMaxRefresh
	}
	return identity.ErrTokenInvalid
}
