package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a safe ORDER BY clause. The id tiebreak keeps paging stable.
func orderClause(orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(orderBy, allowed, defaultField)
	return field + " " + ValidateSortOrder(orderDir) + ", id ASC"
}

// StockItemSortFields contains allowed sort fields for stock items
var StockItemSortFields = map[string]bool{
	"created_at":        true,
	"updated_at":        true,
	"product_id":        true,
	"location_id":       true,
	"quantity":          true,
	"reserved_quantity": true,
	"unit_cost":         true,
	"expiration_date":   true,
	"lot_number":        true,
}

// StockMovementSortFields contains allowed sort fields for the ledger
var StockMovementSortFields = map[string]bool{
	"executed_at":    true,
	"created_at":     true,
	"type":           true,
	"product_id":     true,
	"quantity":       true,
	"reference_type": true,
}

// InventoryCountSortFields contains allowed sort fields for inventory counts
var InventoryCountSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"status":      true,
	"product_id":  true,
	"location_id": true,
	"counted_at":  true,
}
