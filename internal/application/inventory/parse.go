package inventory

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func parseQuantity(value decimal.Decimal, unit string) (valueobject.StockQuantity, error) {
	u, err := valueobject.ParseUnitOfMeasure(unit)
	if err != nil {
		return valueobject.StockQuantity{}, err
	}
	return valueobject.NewStockQuantity(value, u)
}

func parseQuantityString(value, unit string) (valueobject.StockQuantity, error) {
	d, err := parseDecimal(value, "quantity")
	if err != nil {
		return valueobject.StockQuantity{}, err
	}
	return parseQuantity(d, unit)
}

func parseDecimal(value, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, shared.NewValidationError("INVALID_NUMBER", "%s is not a number: %q", field, value)
	}
	return d, nil
}

// parseReferenceType accepts an empty string as "no reference"
func parseReferenceType(s string) (inventory.ReferenceType, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return inventory.ParseReferenceType(s)
}

// parseOptionalID parses a query-string identifier; empty means absent
func parseOptionalID(s, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, shared.NewValidationError("INVALID_ID", "invalid %s: %q", field, s)
	}
	return &id, nil
}

func parseRequiredID(s, field string) (uuid.UUID, error) {
	id, err := parseOptionalID(s, field)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, shared.NewValidationError("INVALID_ID", "%s is required", field)
	}
	return *id, nil
}

func (q StockKeyQuery) parse() (productID, locationID uuid.UUID, err error) {
	if productID, err = parseRequiredID(q.ProductID, "product_id"); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if locationID, err = parseRequiredID(q.LocationID, "location_id"); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return productID, locationID, nil
}

// currencyOr parses code, falling back to def when code is empty
func currencyOr(code string, def valueobject.Currency) (valueobject.Currency, error) {
	if strings.TrimSpace(code) == "" {
		return def, nil
	}
	return valueobject.ParseCurrency(code)
}
