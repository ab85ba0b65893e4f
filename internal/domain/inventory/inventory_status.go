package inventory

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// InventoryStatus is the reconciliation state of an InventoryCount
type InventoryStatus string

const (
	InventoryStatusPending    InventoryStatus = "PENDING"
	InventoryStatusInProgress InventoryStatus = "IN_PROGRESS"
	InventoryStatusCompleted  InventoryStatus = "COMPLETED"
	InventoryStatusCancelled  InventoryStatus = "CANCELLED"
	InventoryStatusDivergent  InventoryStatus = "DIVERGENT"
)

var inventoryTransitions = map[InventoryStatus][]InventoryStatus{
	InventoryStatusPending:    {InventoryStatusInProgress, InventoryStatusCancelled},
	InventoryStatusInProgress: {InventoryStatusCompleted, InventoryStatusDivergent, InventoryStatusCancelled},
	InventoryStatusDivergent:  {InventoryStatusCompleted},
}

// ParseInventoryStatus converts a string into an InventoryStatus
func ParseInventoryStatus(s string) (InventoryStatus, error) {
	st := InventoryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewValidationError("INVALID_STATUS", "invalid inventory status: %q", s)
	}
	return st, nil
}

func (s InventoryStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the five known states
func (s InventoryStatus) IsValid() bool {
	switch s {
	case InventoryStatusPending,
		InventoryStatusInProgress,
		InventoryStatusCompleted,
		InventoryStatusCancelled,
		InventoryStatusDivergent:
		return true
	}
	return false
}

// CanTransitionTo checks the transition table
func (s InventoryStatus) CanTransitionTo(target InventoryStatus) bool {
	for _, allowed := range inventoryTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanBeModified returns true while a count may still be recorded or cancelled
func (s InventoryStatus) CanBeModified() bool {
	return s == InventoryStatusPending || s == InventoryStatusInProgress
}

// OpenInventoryStatuses are the states that block a new count of the same
// product and location. A DIVERGENT count stays open until it is reconciled.
var OpenInventoryStatuses = []InventoryStatus{
	InventoryStatusPending,
	InventoryStatusInProgress,
	InventoryStatusDivergent,
}

// IsOpen returns true until the count is completed or cancelled
func (s InventoryStatus) IsOpen() bool {
	for _, open := range OpenInventoryStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// IsFinalized returns true once a count result exists
func (s InventoryStatus) IsFinalized() bool {
	return s == InventoryStatusCompleted || s == InventoryStatusDivergent
}

// IsTerminal returns true when no further transition is possible
func (s InventoryStatus) IsTerminal() bool {
	return s.IsValid() && len(inventoryTransitions[s]) == 0
}
