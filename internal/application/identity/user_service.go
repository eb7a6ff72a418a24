package identity

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService handles administrator user management
type UserService struct {
	userRepo    identity.UserRepository
	revocations auth.Revocations
	revokeTTL   time.Duration
	logger      *zap.Logger
}

// NewUserService creates a new user service. revokeTTL should cover the
// refresh token lifetime.
func NewUserService(
	userRepo identity.UserRepository,
	revocations auth.Revocations,
	revokeTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		revocations: revocations,
		revokeTTL:   revokeTTL,
		logger:      logger,
	}
}

// CreateStaff creates an ADMIN or OPERATOR account
func (s *UserService) CreateStaff(ctx context.Context, actor shared.Actor, input CreateStaffInput) (*UserDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	role := shared.Role(input.Role)
	if !role.IsStaff() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Staff role must be ADMIN or OPERATOR")
	}

	user, err := identity.NewUser(input.Username, input.Email, input.Password, role)
	if err != nil {
		return nil, err
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Username is already taken")
	}
	if user.Email != "" {
		exists, err = s.userRepo.ExistsByEmail(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
		}
	}
	if input.DisplayName != "" {
		if err := user.UpdateProfile(input.DisplayName, user.Email, "", ""); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Staff account created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)),
		zap.String("created_by", actor.UserID.String()))

	return userDTO(user), nil
}

// EnsureAdmin creates the first ADMIN account when none exists yet. It
// reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, input CreateStaffInput) (bool, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 1
	filter.Filters = map[string]interface{}{"role": string(shared.RoleAdmin)}
	_, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return false, err
	}
	if total > 0 {
		return false, nil
	}

	input.Role = string(shared.RoleAdmin)
	system := shared.Actor{UserID: uuid.Nil, Username: "system", Role: shared.RoleAdmin}
	if _, err := s.CreateStaff(ctx, system, input); err != nil {
		return false, err
	}
	return true, nil
}

// ListUsers returns a page of users. Supported filters: role, status, company_id.
func (s *UserService) ListUsers(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[UserDTO], error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	filter = filter.Normalize()

	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// DisableUser blocks the account and revokes its outstanding tokens
func (s *UserService) DisableUser(ctx context.Context, actor shared.Actor, id uuid.UUID) (*UserDTO, error) {
	if actor.UserID == id {
		return nil, shared.NewDomainError("CANNOT_DISABLE", "Administrators cannot disable their own account")
	}
	return s.transition(ctx, actor, id, "disabled", func(u *identity.User) error {
		return u.Disable()
	})
}

// EnableUser re-activates a disabled account
func (s *UserService) EnableUser(ctx context.Context, actor shared.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, actor, id, "enabled", func(u *identity.User) error {
		return u.Enable()
	})
}

// UnlockUser clears a login lock before it expires
func (s *UserService) UnlockUser(ctx context.Context, actor shared.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.transition(ctx, actor, id, "unlocked", func(u *identity.User) error {
		return u.Unlock()
	})
}

func (s *UserService) transition(ctx context.Context, actor shared.Actor, id uuid.UUID, action string, apply func(*identity.User) error) (*UserDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if user.IsDisabled() && s.revocations != nil {
		if err := s.revocations.RevokeUser(ctx, user.ID.String(), s.revokeTTL); err != nil {
			s.logger.Warn("Failed to revoke tokens of disabled user", zap.Error(err))
		}
	}

	s.logger.Info("User "+action,
		zap.String("user_id", user.ID.String()),
		zap.String("by", actor.UserID.String()))

	return userDTO(user), nil
}
