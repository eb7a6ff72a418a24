package identity

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusLocked   UserStatus = "LOCKED"
	UserStatusDisabled UserStatus = "DISABLED"
)

func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusLocked || s == UserStatusDisabled
}

const (
	maxUsernameLen    = 50
	maxDisplayNameLen = 100
	maxPhoneLen       = 30
	maxAvatarLen      = 500
	maxEmailLen       = 200
	// bcrypt ignores input beyond 72 bytes
	maxPasswordLen = 72
)

var bcryptCost = 12

// SetPasswordHashCost overrides the bcrypt cost. Values bcrypt rejects are
// ignored.
func SetPasswordHashCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		bcryptCost = cost
	}
}

var (
	usernameChars = regexp.MustCompile(`^[a-z0-9_.\-]+$`)
	emailShape    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// User is a portal account. Staff have no company; a customer gets one when
// its onboarding application is approved.
type User struct {
	shared.BaseAggregateRoot
	Username       string
	Email          string
	Phone          string
	PasswordHash   string
	DisplayName    string
	Avatar         string
	Role           shared.Role
	CompanyID      *uuid.UUID
	WechatOpenID   *string
	Status         UserStatus
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	LastLoginIP    string
}

// NewUser creates an active account. Username and email are stored
// lowercased.
func NewUser(username, email, password string, role shared.Role) (*User, error) {
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown user role")
	}
	username = normalize(username)
	email = normalize(email)
	if err := firstError(checkUsername(username), checkPassword(password), checkEmail(email)); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		Status:            UserStatusActive,
	}
	u.RecordEvent(NewUserRegisteredEvent(u))
	return u, nil
}

// NewCustomer registers a self-service customer account
func NewCustomer(username, email, password string) (*User, error) {
	return NewUser(username, email, password, shared.RoleCustomer)
}

// UpdateProfile replaces the self-service profile fields.
func (u *User) UpdateProfile(displayName, email, phone, avatar string) error {
	email = normalize(email)
	err := firstError(
		maxLen("INVALID_DISPLAY_NAME", "Display name", displayName, maxDisplayNameLen),
		checkEmail(email),
		maxLen("INVALID_PHONE", "Phone", phone, maxPhoneLen),
		maxLen("INVALID_AVATAR", "Avatar URL", avatar, maxAvatarLen),
	)
	if err != nil {
		return err
	}
	u.DisplayName = strings.TrimSpace(displayName)
	u.Email = email
	u.Phone = strings.TrimSpace(phone)
	u.Avatar = avatar
	u.IncrementVersion()
	return nil
}

func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// JoinCompany is idempotent for the same company.
func (u *User) JoinCompany(companyID uuid.UUID) error {
	if u.CompanyID != nil && *u.CompanyID != companyID {
		return shared.NewDomainError("ALREADY_ONBOARDED", "User already belongs to a company")
	}
	u.CompanyID = &companyID
	u.IncrementVersion()
	return nil
}

func (u *User) BindWechat(openID string) error {
	if strings.TrimSpace(openID) == "" {
		return shared.NewDomainError("INVALID_OPEN_ID", "WeChat open id is required")
	}
	u.WechatOpenID = &openID
	u.IncrementVersion()
	return nil
}

func (u *User) Disable() error {
	if u.IsDisabled() {
		return shared.NewDomainError("INVALID_STATE", "User is already disabled")
	}
	u.setStatus(UserStatusDisabled, nil)
	return nil
}

// Enable re-activates a disabled account with a clean failure count.
func (u *User) Enable() error {
	if !u.IsDisabled() {
		return shared.NewDomainError("INVALID_STATE", "User is not disabled")
	}
	u.reactivate()
	return nil
}

// Lock rejects logins for d. A negative d leaves an already expired lock.
func (u *User) Lock(d time.Duration) {
	until := time.Now().Add(d)
	u.setStatus(UserStatusLocked, &until)
}

func (u *User) Unlock() error {
	if u.Status != UserStatusLocked {
		return shared.NewDomainError("NOT_LOCKED", "User is not locked")
	}
	u.reactivate()
	return nil
}

// RecordLoginSuccess stamps the login and clears any lock.
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	if u.Status == UserStatusLocked {
		u.reactivate()
		return
	}
	u.FailedAttempts = 0
	u.IncrementVersion()
}

// RecordLoginFailure counts a failed attempt and reports whether it locked
// the account.
func (u *User) RecordLoginFailure(maxAttempts int, lockFor time.Duration) bool {
	u.FailedAttempts++
	if u.FailedAttempts < maxAttempts {
		u.IncrementVersion()
		return false
	}
	u.Lock(lockFor)
	return true
}

// IsLocked reports a lock that has not yet expired.
func (u *User) IsLocked() bool {
	return u.Status == UserStatusLocked && (u.LockedUntil == nil || time.Now().Before(*u.LockedUntil))
}

func (u *User) IsDisabled() bool { return u.Status == UserStatusDisabled }

func (u *User) CanLogin() bool { return !u.IsDisabled() && !u.IsLocked() }

// Actor is the identity application services authorize against.
func (u *User) Actor() shared.Actor {
	return shared.Actor{UserID: u.ID, Username: u.Username, Role: u.Role, CompanyID: u.CompanyID}
}

func (u *User) DisplayNameOrUsername() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u *User) setStatus(s UserStatus, lockedUntil *time.Time) {
	u.Status = s
	u.LockedUntil = lockedUntil
	u.IncrementVersion()
}

func (u *User) reactivate() {
	u.FailedAttempts = 0
	u.setStatus(UserStatusActive, nil)
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func maxLen(code, field, value string, limit int) error {
	if len(value) > limit {
		return shared.NewDomainError(code, field+" cannot exceed "+strconv.Itoa(limit)+" characters")
	}
	return nil
}

func checkUsername(username string) error {
	switch {
	case len(username) < 3:
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 3 characters")
	case len(username) > maxUsernameLen:
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 50 characters")
	case !usernameChars.MatchString(username):
		return shared.NewDomainError("INVALID_USERNAME", "Username may contain only letters, digits, dots, dashes and underscores")
	}
	return nil
}

// checkPassword wants 8 to 72 bytes with at least one letter and one digit.
func checkPassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if err := maxLen("INVALID_PASSWORD", "Password", password, maxPasswordLen); err != nil {
		return err
	}
	if !strings.ContainsFunc(password, isASCIILetter) || !strings.ContainsAny(password, "0123456789") {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

// checkEmail accepts an empty address.
func checkEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := maxLen("INVALID_EMAIL", "Email", email, maxEmailLen); err != nil {
		return err
	}
	if !emailShape.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
