package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id and creation time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch refreshes UpdatedAt
func (e *BaseEntity) Touch() { e.UpdatedAt = time.Now() }

// BaseAggregateRoot adds optimistic locking and the events raised since the
// last save. Repositories compare PersistedVersion against the stored row
// and call MarkPersisted after a successful write.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	events    []DomainEvent
	persisted int
}

// NewBaseAggregateRoot starts at version 1, not yet persisted
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion marks a state change
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// PersistedVersion is the version storage holds, zero before the first save
func (a *BaseAggregateRoot) PersistedVersion() int { return a.persisted }

// MarkPersisted records that storage caught up with Version
func (a *BaseAggregateRoot) MarkPersisted() { a.persisted = a.Version }

// RecordEvent queues an event for publication after the next save
func (a *BaseAggregateRoot) RecordEvent(e DomainEvent) { a.events = append(a.events, e) }

// PendingEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent { return a.events }

// ClearEvents empties the queue
func (a *BaseAggregateRoot) ClearEvents() { a.events = nil }

// CompanyAggregateRoot is an aggregate owned by a customer company
type CompanyAggregateRoot struct {
	BaseAggregateRoot
	CompanyID uuid.UUID
	CreatedBy *uuid.UUID
}

// NewCompanyAggregateRoot creates an aggregate owned by companyID
func NewCompanyAggregateRoot(companyID uuid.UUID, createdBy *uuid.UUID) CompanyAggregateRoot {
	return CompanyAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CompanyID:         companyID,
		CreatedBy:         createdBy,
	}
}
