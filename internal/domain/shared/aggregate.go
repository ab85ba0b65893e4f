package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version          int
	persistedVersion int
	domainEvents     []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// PersistedVersion returns the version last read from or written to storage.
// It is zero for an aggregate that was never saved.
func (a *BaseAggregateRoot) PersistedVersion() int {
	return a.persistedVersion
}

// MarkPersisted records the current version as the stored one
func (a *BaseAggregateRoot) MarkPersisted() {
	a.persistedVersion = a.Version
}

// Touch increments the version and records the modification time
func (a *BaseAggregateRoot) Touch(now time.Time) {
	a.Version++
	a.UpdatedAt = now
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root at version 1
func NewBaseAggregateRoot(id uuid.UUID, now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(id, now),
		Version:    1,
	}
}

// RestoreBaseAggregateRoot rebuilds the root of an aggregate loaded from storage
func RestoreBaseAggregateRoot(id uuid.UUID, version int, createdAt, updatedAt time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:       BaseEntity{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt},
		Version:          version,
		persistedVersion: version,
	}
}

// ScopedAggregateRoot extends BaseAggregateRoot with the tenant scope
type ScopedAggregateRoot struct {
	BaseAggregateRoot
	Scope
}

// NewScopedAggregateRoot creates a new tenant-scoped aggregate root
func NewScopedAggregateRoot(id uuid.UUID, scope Scope, now time.Time) ScopedAggregateRoot {
	return ScopedAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(id, now),
		Scope:             scope,
	}
}

// GetScope returns the tenant scope
func (a *ScopedAggregateRoot) GetScope() Scope {
	return a.Scope
}

// RestoreScopedAggregateRoot rebuilds a tenant-scoped root loaded from storage
func RestoreScopedAggregateRoot(id uuid.UUID, scope Scope, version int, createdAt, updatedAt time.Time) ScopedAggregateRoot {
	return ScopedAggregateRoot{
		BaseAggregateRoot: RestoreBaseAggregateRoot(id, version, createdAt, updatedAt),
		Scope:             scope,
	}
}
