package models

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ScopeModel holds the tenant scope columns
type ScopeModel struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID       uuid.UUID `gorm:"type:uuid;not null;index"`
}

// Scope converts the columns back to a domain scope
func (m ScopeModel) Scope() shared.Scope {
	return shared.Scope{OrganizationID: m.OrganizationID, BranchID: m.BranchID}
}

func scopeModel(s shared.Scope) ScopeModel {
	return ScopeModel{OrganizationID: s.OrganizationID, BranchID: s.BranchID}
}

// ScopedAggregateModel carries the columns of a tenant-scoped aggregate root.
// Version backs optimistic locking.
type ScopedAggregateModel struct {
	BaseModel
	ScopeModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainScopedAggregateRoot populates the model from a domain root
func (m *ScopedAggregateModel) FromDomainScopedAggregateRoot(a shared.ScopedAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.ScopeModel = scopeModel(a.Scope)
	m.Version = a.Version
}
