package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// CountService runs inventory counts from initiation to reconciliation
// and analyses sets of counts
type CountService struct {
	runner          *commandRunner
	items           inventory.StockItemRepository
	counts          inventory.InventoryCountRepository
	validator       *inventory.InventoryValidator
	defaultCurrency valueobject.Currency
}

// NewCountService creates a new CountService
func NewCountService(deps Dependencies) *CountService {
	currency := valueobject.Currency(strings.ToUpper(deps.DefaultCurrency))
	if !currency.IsValid() {
		currency = valueobject.DefaultCurrency
	}
	return &CountService{
		runner:          newCommandRunner("CountService", deps),
		items:           deps.Items,
		counts:          deps.Counts,
		validator:       inventory.NewInventoryValidator(),
		defaultCurrency: currency,
	}
}

// SetLedgerMetrics sets the metrics recorder for count commands and transitions
func (s *CountService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.runner.metrics = m
}

func (s *CountService) countCommand(name string, scope shared.Scope, countID uuid.UUID, extraKeys ...string) command {
	return command{
		name:     name,
		scope:    scope,
		lockKeys: append([]string{countLockKey(scope, countID)}, extraKeys...),
		attrs:    []any{telemetry.SpanAttrCountID, countID.String()},
	}
}

func (s *CountService) recordTransition(ctx context.Context, c *InventoryCountResponse, scope shared.Scope) {
	if s.runner.metrics != nil && c != nil {
		s.runner.metrics.RecordCountTransition(ctx, scope.OrganizationID, c.Status)
	}
}

// Initiate opens a PENDING count, snapshotting the quantity on hand. A product
// with no stock item at the location is counted against zero in req.Unit.
// Only one open count per product and location is allowed.
func (s *CountService) Initiate(ctx context.Context, scope shared.Scope, executedBy string, req InitiateCountRequest) (*InventoryCountResponse, error) {
	var result *InventoryCountResponse
	cmd := command{
		name:     "InitiateCount",
		scope:    scope,
		lockKeys: []string{stockLockKey(scope, req.ProductID, req.LocationID)},
		attrs: []any{
			telemetry.SpanAttrProductID, req.ProductID.String(),
			telemetry.SpanAttrLocationID, req.LocationID.String(),
			"executed_by", executedBy,
		},
	}
	err := s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		open, err := repos.Counts().FindOpenByProductAndLocation(ctx, scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return shared.NewInvariantError("COUNT_ALREADY_OPEN",
				"count %s is still open for this product and location", open[0].ID)
		}

		item, found, err := findItem(ctx, repos.StockItems(), scope, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}
		var system valueobject.StockQuantity
		if found {
			system = item.Quantity()
		} else {
			unit, err := valueobject.ParseUnitOfMeasure(req.Unit)
			if err != nil {
				return err
			}
			system = valueobject.ZeroStockQuantity(unit)
		}

		count, err := inventory.NewInventoryCount(s.runner.ids.NewID(), scope, req.ProductID, req.LocationID, system, s.runner.clock.Now())
		if err != nil {
			return err
		}
		count.Notes = strings.TrimSpace(req.Notes)
		if err := repos.Counts().Save(ctx, count); err != nil {
			return err
		}
		resp := ToInventoryCountResponse(count)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, result, scope)
	return result, nil
}

// transition loads a count under its lock, applies fn and saves it with the given event
func (s *CountService) transition(ctx context.Context, name, eventType string, scope shared.Scope, id uuid.UUID, fn func(c *inventory.InventoryCount) error) (*InventoryCountResponse, error) {
	var result *InventoryCountResponse
	err := s.runner.run(ctx, s.countCommand(name, scope, id), func(ctx context.Context, repos TransactionalRepositories) error {
		count, err := repos.Counts().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if err := fn(count); err != nil {
			return err
		}
		if err := repos.Counts().Save(ctx, count); err != nil {
			return err
		}
		event := inventory.NewInventoryCountEvent(s.runner.eventMeta(), eventType, count)
		if err := repos.Outbox().SaveEvents(ctx, event); err != nil {
			return err
		}
		resp := ToInventoryCountResponse(count)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, result, scope)
	return result, nil
}

// Start moves a PENDING count to IN_PROGRESS
func (s *CountService) Start(ctx context.Context, scope shared.Scope, id uuid.UUID) (*InventoryCountResponse, error) {
	return s.transition(ctx, "StartCount", inventory.EventTypeInventoryCountStarted, scope, id, func(c *inventory.InventoryCount) error {
		return c.StartCount(s.runner.clock.Now())
	})
}

// Record stores the physical count. The count completes when it matches the
// system quantity and becomes DIVERGENT otherwise.
func (s *CountService) Record(ctx context.Context, scope shared.Scope, countedBy string, id uuid.UUID, req RecordCountRequest) (*InventoryCountResponse, error) {
	counted, err := parseQuantity(req.CountedQuantity, req.Unit)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, "RecordCount", inventory.EventTypeInventoryCountRecorded, scope, id, func(c *inventory.InventoryCount) error {
		return c.RecordCount(counted, countedBy, s.runner.clock.Now())
	})
}

// Cancel abandons a count that has not been finalized
func (s *CountService) Cancel(ctx context.Context, scope shared.Scope, id uuid.UUID) (*InventoryCountResponse, error) {
	return s.transition(ctx, "CancelCount", inventory.EventTypeInventoryCountCancelled, scope, id, func(c *inventory.InventoryCount) error {
		return c.Cancel(s.runner.clock.Now())
	})
}

// Reconcile adjusts stock to a divergent count in one transaction: the stock item
// changes first, then the adjustment movement is appended, then the count is completed.
func (s *CountService) Reconcile(ctx context.Context, scope shared.Scope, executedBy string, id uuid.UUID, req ReconcileRequest) (*ReconcileResponse, error) {
	current, err := s.counts.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	var result *ReconcileResponse
	var recorded *inventory.StockMovement
	cmd := s.countCommand("ReconcileCount", scope, id, stockLockKey(scope, current.ProductID, current.LocationID))
	cmd.idempotencyKey = req.IdempotencyKey
	err = s.runner.run(ctx, cmd, func(ctx context.Context, repos TransactionalRepositories) error {
		now := s.runner.clock.Now()
		count, err := repos.Counts().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		item, found, err := findItem(ctx, repos.StockItems(), scope, count.ProductID, count.LocationID)
		if err != nil {
			return err
		}
		if !found {
			currency, err := currencyOr(req.Currency, s.defaultCurrency)
			if err != nil {
				return err
			}
			item, err = inventory.NewStockItem(inventory.StockItemParams{
				ID:         s.runner.ids.NewID(),
				Scope:      scope,
				ProductID:  count.ProductID,
				LocationID: count.LocationID,
				Quantity:   valueobject.ZeroStockQuantity(count.SystemQuantity().Unit()),
				UnitCost:   valueobject.ZeroMoney(currency),
			}, now)
			if err != nil {
				return err
			}
		}

		unitCost := item.UnitCost()
		if req.UnitCost != nil {
			currency, err := currencyOr(req.Currency, item.UnitCost().Currency())
			if err != nil {
				return err
			}
			if unitCost, err = valueobject.NewMoney(*req.UnitCost, currency); err != nil {
				return err
			}
		}

		rec, err := inventory.Reconcile(s.validator, count, item, inventory.ReconciliationInput{
			ExecutedBy: executedBy,
			UnitCost:   unitCost,
			MovementID: s.runner.ids.NewID(),
			ExecutedAt: now,
		})
		if err != nil {
			return err
		}

		events := []shared.DomainEvent{
			inventory.NewStockMovementRecordedEvent(s.runner.eventMeta(), rec.Item, rec.Movement),
			inventory.NewInventoryCountEvent(s.runner.eventMeta(), inventory.EventTypeInventoryCountAdjusted, rec.Count),
		}
		if err := commitStockChange(ctx, repos, stockChange{
			items:    []*inventory.StockItem{rec.Item},
			movement: rec.Movement,
			events:   events,
		}); err != nil {
			return err
		}
		if err := repos.Counts().Save(ctx, rec.Count); err != nil {
			return err
		}

		result = &ReconcileResponse{
			Count:    ToInventoryCountResponse(rec.Count),
			Movement: ToStockMovementResponse(rec.Movement),
			Item:     ToStockItemResponse(rec.Item, now),
		}
		recorded = rec.Movement
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.runner.recordMovements(ctx, recorded)
	if s.runner.metrics != nil {
		s.runner.metrics.RecordCountTransition(ctx, scope.OrganizationID, result.Count.Status)
	}
	return result, nil
}

// Get retrieves a count by ID
func (s *CountService) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (*InventoryCountResponse, error) {
	c, err := s.counts.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := ToInventoryCountResponse(c)
	return &resp, nil
}

// List lists counts with optional product, location and status filters
func (s *CountService) List(ctx context.Context, scope shared.Scope, f InventoryCountListFilter) (*shared.Paginated[InventoryCountResponse], error) {
	productID, err := parseOptionalID(f.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	locationID, err := parseOptionalID(f.LocationID, "location_id")
	if err != nil {
		return nil, err
	}
	filter := inventory.InventoryCountFilter{
		Filter:     pageFilter(f.Page, f.PageSize, "created_at", f.OrderDir),
		ProductID:  productID,
		LocationID: locationID,
	}
	if f.Status != "" {
		status, err := inventory.ParseInventoryStatus(f.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	counts, total, err := s.counts.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryCountResponse, len(counts))
	for i, c := range counts {
		out[i] = ToInventoryCountResponse(c)
	}
	page := shared.NewPaginated(out, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ValidateCount reports whether a recorded count is within the allowed deviation
func (s *CountService) ValidateCount(ctx context.Context, scope shared.Scope, id uuid.UUID) (*CheckResponse, error) {
	c, err := s.counts.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toCheckResponse(s.validator.ValidateCount(c))
}

// loadSet loads every named count, failing if any is missing
func (s *CountService) loadSet(ctx context.Context, scope shared.Scope, req CountSetRequest) ([]*inventory.InventoryCount, error) {
	unique := make([]uuid.UUID, 0, len(req.CountIDs))
	seen := make(map[uuid.UUID]bool, len(req.CountIDs))
	for _, id := range req.CountIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, shared.NewValidationError("NO_COUNTS", "at least one count ID is required")
	}

	counts, err := s.counts.FindByIDs(ctx, scope, unique)
	if err != nil {
		return nil, err
	}
	if len(counts) != len(unique) {
		found := make(map[uuid.UUID]bool, len(counts))
		for _, c := range counts {
			found[c.ID] = true
		}
		for _, id := range unique {
			if !found[id] {
				return nil, shared.NewDomainError(shared.KindNotFound, "COUNT_NOT_FOUND", "inventory count "+id.String()+" not found")
			}
		}
	}
	return counts, nil
}

// Anomalies scans a set of counts for large divergences, negative counts and duplicates
func (s *CountService) Anomalies(ctx context.Context, scope shared.Scope, req CountSetRequest) ([]inventory.Anomaly, error) {
	counts, err := s.loadSet(ctx, scope, req)
	if err != nil {
		return nil, err
	}
	return s.validator.DetectAnomalies(counts), nil
}

// Accuracy returns the percentage of recorded counts in the set without divergence
func (s *CountService) Accuracy(ctx context.Context, scope shared.Scope, req CountSetRequest) (*AccuracyResponse, error) {
	counts, err := s.loadSet(ctx, scope, req)
	if err != nil {
		return nil, err
	}
	accuracy, err := s.validator.CalculateAccuracy(counts)
	if err != nil {
		return nil, err
	}
	evaluated := 0
	for _, c := range counts {
		if c.IsCounted() {
			evaluated++
		}
	}
	return &AccuracyResponse{AccuracyPercent: accuracy, CountsEvaluated: evaluated}, nil
}

// FinalizationCheck reports whether a set of counts can be closed
func (s *CountService) FinalizationCheck(ctx context.Context, scope shared.Scope, req CountSetRequest) (*CheckResponse, error) {
	counts, err := s.loadSet(ctx, scope, req)
	if err != nil {
		return nil, err
	}
	return toCheckResponse(s.validator.ValidateForFinalization(counts))
}

// toCheckResponse turns a domain rejection into a negative check; other errors pass through
func toCheckResponse(err error) (*CheckResponse, error) {
	if err == nil {
		return &CheckResponse{Valid: true}, nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return &CheckResponse{Valid: false, Code: de.Code, Reason: de.Message}, nil
	}
	return nil, err
}
