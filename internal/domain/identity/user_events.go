package identity

import (
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeUser is the aggregate type for users
const AggregateTypeUser = "User"

const (
	EventTypeUserRegistered = "user.registered"
)

// UserRegisteredEvent is published when an account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     shared.Role `json:"role"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID, uuid.Nil),
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
	}
}
