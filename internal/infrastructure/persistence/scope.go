package persistence

import (
	"errors"

	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
)

// scoped restricts a query to one tenant scope. Every ledger read goes through it.
func scoped(scope shared.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ? AND branch_id = ?", scope.OrganizationID, scope.BranchID)
	}
}

// paginate applies the normalized page window
func paginate(f shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(f.Offset()).Limit(f.PageSize)
	}
}

// translateError maps driver errors onto the domain sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrConcurrencyConflict
	default:
		return err
	}
}
