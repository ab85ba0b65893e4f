package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// LedgerService records stock movements against stock items and answers
// stock, ledger and valuation queries
type LedgerService struct {
	runner          *commandRunner
	items           inventory.StockItemRepository
	movements       inventory.StockMovementRepository
	calculator      *inventory.StockCalculator
	defaultCurrency valueobject.Currency
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(deps Dependencies) *LedgerService {
	currency := valueobject.Currency(strings.ToUpper(deps.DefaultCurrency))
	if !currency.IsValid() {
		currency = valueobject.DefaultCurrency
	}
	return &LedgerService{
		runner:          newCommandRunner("LedgerService", deps),
		items:           deps.Items,
		movements:       deps.Movements,
		calculator:      inventory.NewStockCalculator(),
		defaultCurrency: currency,
	}
}

// SetLedgerMetrics sets the metrics recorder for commands and movements
func (s *LedgerService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.runner.metrics = m
}

// DefaultCurrency returns the currency used when a request names none
func (s *LedgerService) DefaultCurrency() valueobject.Currency {
	return s.defaultCurrency
}

// stockChange is everything a stock command writes, applied stock first, ledger second
type stockChange struct {
	items    []*inventory.StockItem
	movement *inventory.StockMovement
	events   []shared.DomainEvent
}

func commitStockChange(ctx context.Context, repos TransactionalRepositories, ch stockChange) error {
	for _, item := range ch.items {
		if err := repos.StockItems().Save(ctx, item); err != nil {
			return err
		}
	}
	if ch.movement != nil {
		if err := repos.Movements().Append(ctx, ch.movement); err != nil {
			return err
		}
	}
	if len(ch.events) > 0 {
		if err := repos.Outbox().SaveEvents(ctx, ch.events...); err != nil {
			return fmt.Errorf("save ledger events: %w", err)
		}
	}
	return nil
}

func findItem(ctx context.Context, repo inventory.StockItemRepository, scope shared.Scope, productID, locationID uuid.UUID) (*inventory.StockItem, bool, error) {
	item, err := repo.FindByProductAndLocation(ctx, scope, productID, locationID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func requireItem(ctx context.Context, repo inventory.StockItemRepository, scope shared.Scope, productID, locationID uuid.UUID) (*inventory.StockItem, error) {
	item, found, err := findItem(ctx, repo, scope, productID, locationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, shared.NewDomainError(shared.KindNotFound, "STOCK_ITEM_NOT_FOUND",
			fmt.Sprintf("no stock of product %s at location %s", productID, locationID))
	}
	return item, nil
}

// weightedUnitCost blends the item's unit cost with an incoming lot, weighted by quantity
func weightedUnitCost(item *inventory.StockItem, incoming valueobject.StockQuantity, cost valueobject.Money) (valueobject.Money, error) {
	current := item.UnitCost()
	if current.Currency() != cost.Currency() {
		return valueobject.Money{}, shared.NewMismatchError("CURRENCY_MISMATCH",
			"incoming cost in %s does not match stock cost in %s", cost.Currency(), current.Currency())
	}
	total := item.Quantity().Value().Add(incoming.Value())
	if total.IsZero() {
		return cost, nil
	}
	value := current.Amount().Mul(item.Quantity().Value()).Add(cost.Amount().Mul(incoming.Value()))
	return valueobject.NewMoney(value.Div(total).Round(inventory.CostPrecision), cost.Currency())
}

// addAtCost adds quantity to an existing item and re-prices it at the weighted average
func addAtCost(item *inventory.StockItem, q valueobject.StockQuantity, cost valueobject.Money, now time.Time) error {
	blended, err := weightedUnitCost(item, q, cost)
	if err != nil {
		return err
	}
	if err := item.AddQuantity(q, now); err != nil {
		return err
	}
	if blended.Equals(item.UnitCost()) {
		return nil
	}
	return item.UpdateUnitCost(blended, now)
}

func (s *LedgerService) stockCommand(name string, scope shared.Scope, idempotencyKey string, productID uuid.UUID, locationIDs ...uuid.UUID) command {
	keys := make([]string, 0, len(locationIDs))
	for _, loc := range locationIDs {
		keys = append(keys, stockLockKey(scope, productID, loc))
	}
	return command{
		name:           name,
		scope:          scope,
		lockKeys:       keys,
		idempotencyKey: idempotencyKey,
		attrs:          []any{telemetry.SpanAttrProductID, productID.String()},
	}
}

func (s *LedgerService) movementResult(m *inventory.StockMovement, items ...*inventory.StockItem) *MovementResultResponse {
	now := s.runner.clock.Now()
	resp := &MovementResultResponse{Items: make([]StockItemResponse, 0, len(items))}
	if m != nil {
		mr := ToStockMovementResponse(m)
		resp.Movement = &mr
	}
	for _, item := range items {
		resp.Items = append(resp.Items, ToStockItemResponse(item, now))
	}
	return resp
}

func (s *LedgerService) movementEvents(m *inventory.StockMovement, items ...*inventory.StockItem) []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0, len(items))
	for _, item := range items {
		events = append(events, inventory.NewStockMovementRecordedEvent(s.runner.eventMeta(), item, m))
	}
	return events
}

// parsedMovement holds the validated common fields of a single-location request
type parsedMovement struct {
	quantity valueobject.StockQuantity
	refType  inventory.ReferenceType
}

func parseMovementRequest(req MovementRequest) (parsedMovement, error) {
	q, err := parseQuantity(req.Quantity, req.Unit)
	if err != nil {
		return parsedMovement{}, err
	}
	refType, err := parseReferenceType(req.ReferenceType)
	if err != nil {
		return parsedMovement{}, err
	}
	return parsedMovement{quantity: q, refType: refType}, nil
}

// Receive records an ENTRY. A product new to the location gets a stock item
// carrying the lot and expiration; an existing item is re-priced at the weighted average cost.
func (s *LedgerService) Receive(ctx context.Context, scope shared.Scope, executedBy string, req ReceiveRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req.MovementRequest)
	if err != nil {
		return nil, err
	}
	currency, err := currencyOr(req.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}
	cost, err := valueobject.NewMoney(req.UnitCost, currency)
	if err != nil {
		return nil, err
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand("Receive", scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		location := req.LocationID
		m, err := inventory.NewStockMovement(inventory.StockMovementParams{
			ID:            s.runner.ids.NewID(),
			Scope:         scope,
			ProductID:     req.ProductID,
			ToLocationID:  &location,
			Type:          inventory.MovementTypeEntry,
			Quantity:      p.quantity,
			UnitCost:      cost,
			ReferenceType: p.refType,
			ReferenceID:   req.ReferenceID,
			Reason:        req.Reason,
			ExecutedBy:    executedBy,
			ExecutedAt:    now,
		})
		if err != nil {
			return err
		}

		item, found, err := findItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		if found {
			err = addAtCost(item, p.quantity, cost, now)
		} else {
			item, err = inventory.NewStockItem(inventory.StockItemParams{
				ID:             s.runner.ids.NewID(),
				Scope:          scope,
				ProductID:      req.ProductID,
				LocationID:     req.LocationID,
				Quantity:       p.quantity,
				UnitCost:       cost,
				LotNumber:      req.LotNumber,
				ExpirationDate: req.ExpirationDate,
			}, now)
		}
		if err != nil {
			return err
		}

		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{item},
			movement: m,
			events:   s.movementEvents(m, item),
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, item), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// Issue records an EXIT of available stock
func (s *LedgerService) Issue(ctx context.Context, scope shared.Scope, executedBy string, req MovementRequest) (*MovementResultResponse, error) {
	return s.removeStock(ctx, "Issue", inventory.MovementTypeExit, scope, executedBy, req)
}

// Pick records a PICKING of available stock for order fulfilment
func (s *LedgerService) Pick(ctx context.Context, scope shared.Scope, executedBy string, req MovementRequest) (*MovementResultResponse, error) {
	return s.removeStock(ctx, "Pick", inventory.MovementTypePicking, scope, executedBy, req)
}

func (s *LedgerService) removeStock(ctx context.Context, name string, movementType inventory.MovementType, scope shared.Scope, executedBy string, req MovementRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req)
	if err != nil {
		return nil, err
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand(name, scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		item, err := requireItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		location := req.LocationID
		m, err := inventory.NewStockMovement(inventory.StockMovementParams{
			ID:             s.runner.ids.NewID(),
			Scope:          scope,
			ProductID:      req.ProductID,
			FromLocationID: &location,
			Type:           movementType,
			Quantity:       p.quantity,
			UnitCost:       item.UnitCost(),
			ReferenceType:  p.refType,
			ReferenceID:    req.ReferenceID,
			Reason:         req.Reason,
			ExecutedBy:     executedBy,
			ExecutedAt:     now,
		})
		if err != nil {
			return err
		}
		if err := item.RemoveQuantity(p.quantity, now); err != nil {
			return err
		}

		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{item},
			movement: m,
			events:   s.movementEvents(m, item),
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, item), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// Return records a RETURN into a location. The product's stock item is created
// at the request's unit cost, or zero, when it does not exist yet.
func (s *LedgerService) Return(ctx context.Context, scope shared.Scope, executedBy string, req ReturnRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req.MovementRequest)
	if err != nil {
		return nil, err
	}
	currency, err := currencyOr(req.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}
	newItemCost := valueobject.ZeroMoney(currency)
	if req.UnitCost != nil {
		if newItemCost, err = valueobject.NewMoney(*req.UnitCost, currency); err != nil {
			return nil, err
		}
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand("Return", scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		item, found, err := findItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		cost := newItemCost
		if found {
			cost = item.UnitCost()
		}

		location := req.LocationID
		m, err := inventory.NewStockMovement(inventory.StockMovementParams{
			ID:            s.runner.ids.NewID(),
			Scope:         scope,
			ProductID:     req.ProductID,
			ToLocationID:  &location,
			Type:          inventory.MovementTypeReturn,
			Quantity:      p.quantity,
			UnitCost:      cost,
			ReferenceType: p.refType,
			ReferenceID:   req.ReferenceID,
			Reason:        req.Reason,
			ExecutedBy:    executedBy,
			ExecutedAt:    now,
		})
		if err != nil {
			return err
		}

		if found {
			err = item.AddQuantity(p.quantity, now)
		} else {
			item, err = inventory.NewStockItem(inventory.StockItemParams{
				ID:         s.runner.ids.NewID(),
				Scope:      scope,
				ProductID:  req.ProductID,
				LocationID: req.LocationID,
				Quantity:   p.quantity,
				UnitCost:   cost,
			}, now)
		}
		if err != nil {
			return err
		}

		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{item},
			movement: m,
			events:   s.movementEvents(m, item),
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, item), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// Transfer moves available stock between two locations as one TRANSFER movement.
// The destination item is created with the source's cost, lot and expiration when missing.
func (s *LedgerService) Transfer(ctx context.Context, scope shared.Scope, executedBy string, req TransferRequest) (*MovementResultResponse, error) {
	q, err := parseQuantity(req.Quantity, req.Unit)
	if err != nil {
		return nil, err
	}
	refType, err := parseReferenceType(req.ReferenceType)
	if err != nil {
		return nil, err
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand("Transfer", scope, req.IdempotencyKey, req.ProductID, req.FromLocationID, req.ToLocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		source, err := requireItem(ctx, repos.StockItems(), scope, req.ProductID, req.FromLocationID)
		if err != nil {
			return err
		}
		from, to := req.FromLocationID, req.ToLocationID
		m, err := inventory.NewStockMovement(inventory.StockMovementParams{
			ID:             s.runner.ids.NewID(),
			Scope:          scope,
			ProductID:      req.ProductID,
			FromLocationID: &from,
			ToLocationID:   &to,
			Type:           inventory.MovementTypeTransfer,
			Quantity:       q,
			UnitCost:       source.UnitCost(),
			ReferenceType:  refType,
			ReferenceID:    req.ReferenceID,
			Reason:         req.Reason,
			ExecutedBy:     executedBy,
			ExecutedAt:     now,
		})
		if err != nil {
			return err
		}
		if err := source.RemoveQuantity(q, now); err != nil {
			return err
		}

		dest, found, err := findItem(ctx, repos.StockItems(), scope, req.ProductID, req.ToLocationID)
		if err != nil {
			return err
		}
		if found {
			err = addAtCost(dest, q, source.UnitCost(), now)
		} else {
			dest, err = inventory.NewStockItem(inventory.StockItemParams{
				ID:             s.runner.ids.NewID(),
				Scope:          scope,
				ProductID:      req.ProductID,
				LocationID:     req.ToLocationID,
				Quantity:       q,
				UnitCost:       source.UnitCost(),
				LotNumber:      source.LotNumber(),
				ExpirationDate: source.ExpirationDate(),
			}, now)
		}
		if err != nil {
			return err
		}

		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{source, dest},
			movement: m,
			events:   s.movementEvents(m, source, dest),
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, source, dest), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// Reserve holds available stock and records a RESERVATION movement
func (s *LedgerService) Reserve(ctx context.Context, scope shared.Scope, executedBy string, req MovementRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req)
	if err != nil {
		return nil, err
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand("Reserve", scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		item, err := requireItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		location := req.LocationID
		m, err := inventory.NewStockMovement(inventory.StockMovementParams{
			ID:             s.runner.ids.NewID(),
			Scope:          scope,
			ProductID:      req.ProductID,
			FromLocationID: &location,
			Type:           inventory.MovementTypeReservation,
			Quantity:       p.quantity,
			UnitCost:       item.UnitCost(),
			ReferenceType:  p.refType,
			ReferenceID:    req.ReferenceID,
			Reason:         req.Reason,
			ExecutedBy:     executedBy,
			ExecutedAt:     now,
		})
		if err != nil {
			return err
		}
		if err := item.Reserve(p.quantity, now); err != nil {
			return err
		}

		events := s.movementEvents(m, item)
		events = append(events, inventory.NewStockReservationEvent(s.runner.eventMeta(),
			inventory.EventTypeStockReserved, item, p.quantity, req.ReferenceID))
		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{item},
			movement: m,
			events:   events,
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, item), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// Release returns reserved stock to available. No movement is recorded since
// quantity on hand does not change; a StockReleased event is emitted instead.
func (s *LedgerService) Release(ctx context.Context, scope shared.Scope, executedBy string, req MovementRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req)
	if err != nil {
		return nil, err
	}

	var result *MovementResultResponse
	cmd := s.stockCommand("Release", scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	cmd.attrs = append(cmd.attrs, "executed_by", executedBy)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		item, err := requireItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		if err := item.Release(p.quantity, now); err != nil {
			return err
		}
		released := inventory.NewStockReservationEvent(s.runner.eventMeta(),
			inventory.EventTypeStockReleased, item, p.quantity, req.ReferenceID)
		if err := commitStockChange(ctx, repos, stockChange{
			items:  []*inventory.StockItem{item},
			events: []shared.DomainEvent{released},
		}); err != nil {
			return err
		}
		result = s.movementResult(nil, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Adjust records a manual ADJUSTMENT_PLUS or ADJUSTMENT_MINUS outside an
// inventory count. A reason is mandatory.
func (s *LedgerService) Adjust(ctx context.Context, scope shared.Scope, executedBy string, req AdjustRequest) (*MovementResultResponse, error) {
	p, err := parseMovementRequest(req.MovementRequest)
	if err != nil {
		return nil, err
	}
	movementType, err := inventory.ParseMovementType(req.Type)
	if err != nil {
		return nil, err
	}
	if movementType != inventory.MovementTypeAdjustmentPlus && movementType != inventory.MovementTypeAdjustmentMinus {
		return nil, shared.NewValidationError("INVALID_MOVEMENT_TYPE", "manual adjustments must be ADJUSTMENT_PLUS or ADJUSTMENT_MINUS, got %s", movementType)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewValidationError("INVALID_REASON", "a reason is required for manual adjustments")
	}

	var result *MovementResultResponse
	var recorded *inventory.StockMovement
	cmd := s.stockCommand("Adjust", scope, req.IdempotencyKey, req.ProductID, req.LocationID)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		item, found, err := findItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		if !found && movementType == inventory.MovementTypeAdjustmentMinus {
			return shared.NewDomainError(shared.KindNotFound, "STOCK_ITEM_NOT_FOUND",
				fmt.Sprintf("no stock of product %s at location %s", req.ProductID, req.LocationID))
		}
		cost := valueobject.ZeroMoney(s.defaultCurrency)
		if found {
			cost = item.UnitCost()
		}

		location := req.LocationID
		params := inventory.StockMovementParams{
			ID:            s.runner.ids.NewID(),
			Scope:         scope,
			ProductID:     req.ProductID,
			Type:          movementType,
			Quantity:      p.quantity,
			UnitCost:      cost,
			ReferenceType: p.refType,
			ReferenceID:   req.ReferenceID,
			Reason:        req.Reason,
			ExecutedBy:    executedBy,
			ExecutedAt:    now,
		}
		if movementType == inventory.MovementTypeAdjustmentPlus {
			params.ToLocationID = &location
		} else {
			params.FromLocationID = &location
		}
		m, err := inventory.NewStockMovement(params)
		if err != nil {
			return err
		}

		switch {
		case !found:
			item, err = inventory.NewStockItem(inventory.StockItemParams{
				ID:         s.runner.ids.NewID(),
				Scope:      scope,
				ProductID:  req.ProductID,
				LocationID: req.LocationID,
				Quantity:   p.quantity,
				UnitCost:   cost,
			}, now)
		case movementType == inventory.MovementTypeAdjustmentPlus:
			err = item.AddQuantity(p.quantity, now)
		default:
			err = item.RemoveQuantity(p.quantity, now)
		}
		if err != nil {
			return err
		}

		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{item},
			movement: m,
			events:   s.movementEvents(m, item),
		}); err != nil {
			return err
		}
		result, recorded = s.movementResult(m, item), m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	return result, nil
}

// UpdateUnitCost replaces the unit cost of a stock item. Without a currency
// the item's current currency is kept.
func (s *LedgerService) UpdateUnitCost(ctx context.Context, scope shared.Scope, executedBy string, itemID uuid.UUID, req UpdateUnitCostRequest) (*StockItemResponse, error) {
	current, err := s.items.FindByID(ctx, scope, itemID)
	if err != nil {
		return nil, err
	}
	currency, err := currencyOr(req.Currency, current.UnitCost().Currency())
	if err != nil {
		return nil, err
	}
	cost, err := valueobject.NewMoney(req.UnitCost, currency)
	if err != nil {
		return nil, err
	}

	var result *StockItemResponse
	cmd := s.stockCommand("UpdateUnitCost", scope, "", current.ProductID, current.LocationID)
	cmd.attrs = append(cmd.attrs, "executed_by", executedBy)
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		item, err := repos.StockItems().FindByID(ctx, scope, itemID)
		if err != nil {
			return err
		}
		oldCost := item.UnitCost()
		if err := item.UpdateUnitCost(cost, s.runner.clock.Now()); err != nil {
			return err
		}
		if err := commitStockChange(ctx, repos, stockChange{
			items:  []*inventory.StockItem{item},
			events: []shared.DomainEvent{inventory.NewStockUnitCostUpdatedEvent(s.runner.eventMeta(), item, oldCost)},
		}); err != nil {
			return err
		}
		resp := ToStockItemResponse(item, s.runner.clock.Now())
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetItem retrieves a stock item by ID
func (s *LedgerService) GetItem(ctx context.Context, scope shared.Scope, id uuid.UUID) (*StockItemResponse, error) {
	item, err := s.items.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := ToStockItemResponse(item, s.runner.clock.Now())
	return &resp, nil
}

// ListItems lists stock items with optional product and location filters
func (s *LedgerService) ListItems(ctx context.Context, scope shared.Scope, f StockItemListFilter) (*shared.Paginated[StockItemResponse], error) {
	productID, err := parseOptionalID(f.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	locationID, err := parseOptionalID(f.LocationID, "location_id")
	if err != nil {
		return nil, err
	}
	filter := inventory.StockItemFilter{
		Filter:     pageFilter(f.Page, f.PageSize, f.OrderBy, f.OrderDir),
		ProductID:  productID,
		LocationID: locationID,
	}

	items, total, err := s.items.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	now := s.runner.clock.Now()
	out := make([]StockItemResponse, len(items))
	for i, item := range items {
		out[i] = ToStockItemResponse(item, now)
	}
	page := shared.NewPaginated(out, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetMovement retrieves a ledger entry by ID
func (s *LedgerService) GetMovement(ctx context.Context, scope shared.Scope, id uuid.UUID) (*StockMovementResponse, error) {
	m, err := s.movements.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := ToStockMovementResponse(m)
	return &resp, nil
}

// ListMovements lists ledger entries, newest first unless asked otherwise
func (s *LedgerService) ListMovements(ctx context.Context, scope shared.Scope, f StockMovementListFilter) (*shared.Paginated[StockMovementResponse], error) {
	productID, err := parseOptionalID(f.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	locationID, err := parseOptionalID(f.LocationID, "location_id")
	if err != nil {
		return nil, err
	}
	filter := inventory.StockMovementFilter{
		Filter:      pageFilter(f.Page, f.PageSize, "executed_at", f.OrderDir),
		ProductID:   productID,
		LocationID:  locationID,
		ReferenceID: strings.TrimSpace(f.ReferenceID),
	}
	if f.Type != "" {
		t, err := inventory.ParseMovementType(f.Type)
		if err != nil {
			return nil, err
		}
		filter.Type = &t
	}
	if f.ReferenceType != "" {
		r, err := inventory.ParseReferenceType(f.ReferenceType)
		if err != nil {
			return nil, err
		}
		filter.ReferenceType = &r
	}

	movements, total, err := s.movements.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToStockMovementResponses(movements), total, filter.Page, filter.PageSize)
	return &page, nil
}
