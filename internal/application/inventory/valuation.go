package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
)

// AverageCost returns the weighted average unit cost of every stock-increasing
// movement recorded for a product at a location
func (s *LedgerService) AverageCost(ctx context.Context, scope shared.Scope, q StockKeyQuery) (*MoneyResponse, error) {
	productID, locationID, err := q.parse()
	if err != nil {
		return nil, err
	}
	movements, err := s.movements.FindByProductAndLocation(ctx, scope, productID, locationID)
	if err != nil {
		return nil, err
	}
	cost, err := s.calculator.CalculateAverageCost(movements)
	if err != nil {
		return nil, err
	}
	resp := toMoneyResponse(cost)
	return &resp, nil
}

// FIFOCost prices a quantity against the oldest entries at a location first
func (s *LedgerService) FIFOCost(ctx context.Context, scope shared.Scope, q FIFOCostQuery) (*MoneyResponse, error) {
	productID, locationID, err := q.parse()
	if err != nil {
		return nil, err
	}
	quantity, err := parseQuantityString(q.Quantity, q.Unit)
	if err != nil {
		return nil, err
	}
	movements, err := s.movements.FindByProductAndLocation(ctx, scope, productID, locationID)
	if err != nil {
		return nil, err
	}
	cost, err := s.calculator.CalculateFIFOCost(movements, quantity)
	if err != nil {
		return nil, err
	}
	resp := toMoneyResponse(cost)
	return &resp, nil
}

// TotalValue sums the stock value of one product across locations, or of one location across products.
// Exactly one of the two filters must be given.
func (s *LedgerService) TotalValue(ctx context.Context, scope shared.Scope, q TotalValueQuery) (*MoneyResponse, error) {
	productID, err := parseOptionalID(q.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	locationID, err := parseOptionalID(q.LocationID, "location_id")
	if err != nil {
		return nil, err
	}

	var items []*inventory.StockItem
	switch {
	case productID != nil && locationID == nil:
		items, err = s.items.FindByProduct(ctx, scope, *productID)
	case locationID != nil && productID == nil:
		items, err = s.items.FindByLocation(ctx, scope, *locationID)
	default:
		return nil, shared.NewValidationError("INVALID_FILTER", "exactly one of product_id or location_id is required")
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		resp := toMoneyResponse(valueobject.ZeroMoney(s.defaultCurrency))
		return &resp, nil
	}
	total, err := s.calculator.CalculateTotalValue(items)
	if err != nil {
		return nil, err
	}
	resp := toMoneyResponse(total)
	return &resp, nil
}

// Projection applies planned movements to the current quantity on hand.
// Planned quantities are read in the stock item's unit.
func (s *LedgerService) Projection(ctx context.Context, scope shared.Scope, req ProjectionRequest) (*ProjectionResponse, error) {
	item, err := requireItem(ctx, s.items, scope, req.ProductID, req.LocationID)
	if err != nil {
		return nil, err
	}
	planned := make([]inventory.PlannedMovement, 0, len(req.Movements))
	for _, pm := range req.Movements {
		t, err := inventory.ParseMovementType(pm.Type)
		if err != nil {
			return nil, err
		}
		q, err := valueobject.NewStockQuantity(pm.Quantity, item.Unit())
		if err != nil {
			return nil, err
		}
		planned = append(planned, inventory.PlannedMovement{Type: t, Quantity: q})
	}
	projected, err := s.calculator.ProjectStock(item.Quantity(), planned)
	if err != nil {
		return nil, err
	}
	return &ProjectionResponse{
		Current:   toQuantityResponse(item.Quantity()),
		Projected: toQuantityResponse(projected),
	}, nil
}

// Coverage returns how many whole days the quantity on hand lasts at the given daily usage
func (s *LedgerService) Coverage(ctx context.Context, scope shared.Scope, q CoverageQuery) (*CoverageResponse, error) {
	productID, locationID, err := q.parse()
	if err != nil {
		return nil, err
	}
	item, err := requireItem(ctx, s.items, scope, productID, locationID)
	if err != nil {
		return nil, err
	}
	usage, err := parseQuantityString(q.AvgDailyUsage, item.Unit().String())
	if err != nil {
		return nil, err
	}
	days, err := s.calculator.CalculateCoverageDays(item.Quantity(), usage)
	if err != nil {
		return nil, err
	}
	return &CoverageResponse{Current: toQuantityResponse(item.Quantity()), Days: days}, nil
}

// Turnover divides sold quantity by average stock
func (s *LedgerService) Turnover(q TurnoverQuery) (*TurnoverResponse, error) {
	sold, err := parseQuantityString(q.Sold, q.Unit)
	if err != nil {
		return nil, err
	}
	avg, err := parseQuantityString(q.AverageStock, q.Unit)
	if err != nil {
		return nil, err
	}
	turnover, err := s.calculator.CalculateTurnover(sold, avg)
	if err != nil {
		return nil, err
	}
	return &TurnoverResponse{Turnover: turnover}, nil
}
