package identity

import (
	"time"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
)

// RegisterInput is a customer self-registration
type RegisterInput struct {
	Username    string
	Email       string
	Phone       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Username string
	Password string
	IP       string
}

type WechatLoginInput struct {
	Code string
	IP   string
}

// Session is issued on login and on refresh. Refresh re-reads the account,
// so User reflects any role or company change.
type Session struct {
	Token auth.TokenPair `json:"token"`
	User  UserDTO        `json:"user"`
}

// UpdateProfileInput replaces the caller's profile fields.
type UpdateProfileInput struct {
	DisplayName string
	Email       string
	Phone       string
	Avatar      string
}

type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// CreateStaffInput creates an ADMIN or OPERATOR account
type CreateStaffInput struct {
	Username    string
	Password    string
	Email       string
	DisplayName string
	Role        string
}

// UserDTO never carries the password hash or the WeChat open id.
type UserDTO struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	DisplayName    string     `json:"display_name"`
	Avatar         string     `json:"avatar"`
	Role           string     `json:"role"`
	CompanyID      *uuid.UUID `json:"company_id,omitempty"`
	WechatBound    bool       `json:"wechat_bound"`
	Status         string     `json:"status"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP    string     `json:"last_login_ip,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func ToUserDTO(user *identity.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Phone:          user.Phone,
		DisplayName:    user.DisplayNameOrUsername(),
		Avatar:         user.Avatar,
		Role:           string(user.Role),
		CompanyID:      user.CompanyID,
		WechatBound:    user.WechatOpenID != nil,
		Status:         string(user.Status),
		FailedAttempts: user.FailedAttempts,
		LockedUntil:    user.LockedUntil,
		LastLoginAt:    user.LastLoginAt,
		LastLoginIP:    user.LastLoginIP,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func userDTO(u *identity.User) *UserDTO {
	d := ToUserDTO(u)
	return &d
}

func newSession(pair *auth.TokenPair, user *identity.User) *Session {
	return &Session{Token: *pair, User: ToUserDTO(user)}
}

func subjectOf(user *identity.User) auth.Subject {
	return auth.Subject{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CompanyID: user.CompanyID,
	}
}
