package models

import (
	"time"

	"github.com/freightport/backend/internal/domain/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel maps identity.User onto the users table.
type UserModel struct {
	AggregateModel
	Username     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Role         shared.Role         `gorm:"type:varchar(20);not null;index"`
	CompanyID    *uuid.UUID          `gorm:"type:uuid;index"`
	WechatOpenID *string             `gorm:"type:varchar(64);uniqueIndex"`
	Status       identity.UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Profile      UserProfileColumns  `gorm:"embedded"`
	Login        UserLoginColumns    `gorm:"embedded"`
}

// UserProfileColumns are the fields a user edits on their own profile.
type UserProfileColumns struct {
	// unique when set, see persistence.uniqueIndexes
	Email       string `gorm:"type:varchar(200)"`
	Phone       string `gorm:"type:varchar(50)"`
	DisplayName string `gorm:"type:varchar(200)"`
	Avatar      string `gorm:"type:varchar(500)"`
}

// UserLoginColumns hold the credential and lockout state.
type UserLoginColumns struct {
	PasswordHash   string `gorm:"type:varchar(255);not null"`
	FailedAttempts int    `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	LastLoginAt    *time.Time `gorm:"index"`
	LastLoginIP    string     `gorm:"type:varchar(45)"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		Username:     m.Username,
		Role:         m.Role,
		CompanyID:    m.CompanyID,
		WechatOpenID: m.WechatOpenID,
		Status:       m.Status,
	}
	u.Email, u.Phone, u.DisplayName, u.Avatar = m.Profile.Email, m.Profile.Phone, m.Profile.DisplayName, m.Profile.Avatar
	u.PasswordHash, u.FailedAttempts, u.LockedUntil = m.Login.PasswordHash, m.Login.FailedAttempts, m.Login.LockedUntil
	u.LastLoginAt, u.LastLoginIP = m.Login.LastLoginAt, m.Login.LastLoginIP
	m.LoadAggregate(&u.BaseAggregateRoot)
	return u
}

func (m *UserModel) FromDomain(u *identity.User) {
	m.SetAggregate(u.BaseAggregateRoot)
	m.Username, m.Role, m.CompanyID = u.Username, u.Role, u.CompanyID
	m.WechatOpenID, m.Status = u.WechatOpenID, u.Status
	m.Profile = UserProfileColumns{Email: u.Email, Phone: u.Phone, DisplayName: u.DisplayName, Avatar: u.Avatar}
	m.Login = UserLoginColumns{
		PasswordHash:   u.PasswordHash,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
		LastLoginAt:    u.LastLoginAt,
		LastLoginIP:    u.LastLoginIP,
	}
}

// NewUserModel builds the row for u.
func NewUserModel(u *identity.User) *UserModel {
	m := new(UserModel)
	m.FromDomain(u)
	return m
}
