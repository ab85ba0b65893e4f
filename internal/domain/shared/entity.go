package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities.
// Identifiers and timestamps are always supplied by the caller.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// NewBaseEntity creates a base entity from an externally generated ID and timestamp
func NewBaseEntity(id uuid.UUID, now time.Time) BaseEntity {
	return BaseEntity{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Scope is the (organization, branch) tenant boundary every ledger record lives in
type Scope struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	BranchID       uuid.UUID `json:"branch_id"`
}

// NewScope validates and creates a tenant scope
func NewScope(organizationID, branchID uuid.UUID) (Scope, error) {
	s := Scope{OrganizationID: organizationID, BranchID: branchID}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Validate checks that both scope identifiers are set
func (s Scope) Validate() error {
	if s.OrganizationID == uuid.Nil {
		return NewValidationError("INVALID_ORGANIZATION", "organization ID cannot be empty")
	}
	if s.BranchID == uuid.Nil {
		return NewValidationError("INVALID_BRANCH", "branch ID cannot be empty")
	}
	return nil
}

// Contains reports whether other belongs to the same tenant scope
func (s Scope) Contains(other Scope) bool {
	return s.OrganizationID == other.OrganizationID && s.BranchID == other.BranchID
}
