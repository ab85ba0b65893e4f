package inventory

import (
	"context"
	"testing"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stocked receives qty of a fresh product at a fresh location
func (f *fixture) stocked(t *testing.T, qty, cost string) (uuid.UUID, uuid.UUID) {
	t.Helper()
	productID, locationID := uuid.New(), uuid.New()
	_, err := f.ledger.Receive(context.Background(), f.scope, "receiver", receiveReq(productID, locationID, qty, cost))
	require.NoError(t, err)
	return productID, locationID
}

func (f *fixture) recordedCount(t *testing.T, productID, locationID uuid.UUID, counted string) *InventoryCountResponse {
	t.Helper()
	ctx := context.Background()
	c, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID})
	require.NoError(t, err)
	c, err = f.countSvc.Record(ctx, f.scope, "auditor", c.ID, RecordCountRequest{CountedQuantity: dec(counted), Unit: "UN"})
	require.NoError(t, err)
	return c
}

func TestCountService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := f.stocked(t, "100", "2.00")

	c, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID, Notes: " cycle A "})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", c.Status)
	assert.True(t, dec("100").Equal(c.SystemQuantity))
	assert.Equal(t, "cycle A", c.Notes)

	t.Run("only one open count per product and location", func(t *testing.T) {
		_, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "COUNT_ALREADY_OPEN", de.Code)
	})

	c, err = f.countSvc.Start(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", c.Status)

	_, err = f.countSvc.Start(ctx, f.scope, c.ID)
	assert.True(t, shared.IsKind(err, shared.KindStateTransition))

	c, err = f.countSvc.Record(ctx, f.scope, "auditor", c.ID, RecordCountRequest{CountedQuantity: dec("95"), Unit: "UN"})
	require.NoError(t, err)
	assert.Equal(t, "DIVERGENT", c.Status)
	require.NotNil(t, c.Difference)
	assert.True(t, dec("-5").Equal(*c.Difference))

	check, err := f.countSvc.ValidateCount(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, "UNRESOLVED_DIVERGENCE", check.Code)

	movementsBefore := f.movements.count()
	res, err := f.countSvc.Reconcile(ctx, f.scope, "supervisor", c.ID, ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Count.Status)
	assert.Equal(t, &res.Movement.ID, res.Count.AdjustmentMovementID)
	assert.Equal(t, "ADJUSTMENT_MINUS", res.Movement.Type)
	assert.Equal(t, "INVENTORY", res.Movement.ReferenceType)
	assert.True(t, dec("5").Equal(res.Movement.Quantity))
	assert.True(t, dec("2").Equal(res.Movement.UnitCost))
	assert.True(t, dec("95").Equal(res.Item.Quantity))
	assert.Equal(t, movementsBefore+1, f.movements.count())
	assert.True(t, dec("95").Equal(f.items.get(f.scope, productID, locationID).Quantity().Value()))
	assert.Contains(t, f.outbox.types(), inventory.EventTypeInventoryCountAdjusted)

	check, err = f.countSvc.ValidateCount(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.True(t, check.Valid)

	t.Run("completed count cannot be reconciled again", func(t *testing.T) {
		_, err := f.countSvc.Reconcile(ctx, f.scope, "supervisor", c.ID, ReconcileRequest{})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "NO_DIVERGENCE", de.Code)
		assert.Equal(t, movementsBefore+1, f.movements.count())
	})

	t.Run("a new count can open once the previous one is finished", func(t *testing.T) {
		_, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID})
		assert.NoError(t, err)
	})
}

func TestCountService_RecordMatching(t *testing.T) {
	f := newFixture()
	productID, locationID := f.stocked(t, "12", "1")

	c := f.recordedCount(t, productID, locationID, "12")
	assert.Equal(t, "COMPLETED", c.Status)
	assert.Equal(t, "auditor", c.CountedBy)
	assert.Equal(t, &f.now, c.CountedAt)
}

func TestCountService_ReconcileSurplusWithoutStockItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := uuid.New(), uuid.New()

	c, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID, Unit: "KG"})
	require.NoError(t, err)
	assert.True(t, c.SystemQuantity.IsZero())
	assert.Equal(t, "KG", c.Unit)

	c, err = f.countSvc.Record(ctx, f.scope, "auditor", c.ID, RecordCountRequest{CountedQuantity: dec("3"), Unit: "KG"})
	require.NoError(t, err)
	assert.Equal(t, "DIVERGENT", c.Status)

	// zero system quantity makes the deviation unbounded; reconciliation still opens the stock item
	res, err := f.countSvc.Reconcile(ctx, f.scope, "supervisor", c.ID, ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Count.Status)
	assert.Equal(t, "ADJUSTMENT_PLUS", res.Movement.Type)
	assert.True(t, dec("3").Equal(res.Item.Quantity))
	item := f.items.get(f.scope, productID, locationID)
	require.NotNil(t, item)
	assert.True(t, dec("3").Equal(item.Quantity().Value()))
	assert.Equal(t, "KG", item.Quantity().Unit().String())
}

func TestCountService_ReconcileBeyondDeviationLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := f.stocked(t, "60", "1")
	c := f.recordedCount(t, productID, locationID, "130")

	check, err := f.countSvc.ValidateCount(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	res, err := f.countSvc.Reconcile(ctx, f.scope, "supervisor", c.ID, ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Count.Status)
	assert.True(t, dec("70").Equal(res.Movement.Quantity))
	assert.True(t, dec("130").Equal(res.Item.Quantity))
}

func TestCountService_DivergentCountBlocksNewCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := f.stocked(t, "100", "1")
	first := f.recordedCount(t, productID, locationID, "95")
	require.Equal(t, "DIVERGENT", first.Status)

	_, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "COUNT_ALREADY_OPEN", de.Code)

	_, err = f.countSvc.Reconcile(ctx, f.scope, "supervisor", first.ID, ReconcileRequest{})
	require.NoError(t, err)
	assert.True(t, dec("95").Equal(f.items.get(f.scope, productID, locationID).Quantity().Value()))

	second := f.recordedCount(t, productID, locationID, "95")
	assert.Equal(t, "COMPLETED", second.Status, "the adjusted stock already matches the shelf")
	assert.True(t, dec("95").Equal(f.items.get(f.scope, productID, locationID).Quantity().Value()))
}

func TestCountService_ReconcileWithUnitCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := f.stocked(t, "10", "1")
	c := f.recordedCount(t, productID, locationID, "14")

	cost := dec("1.75")
	res, err := f.countSvc.Reconcile(ctx, f.scope, "supervisor", c.ID, ReconcileRequest{UnitCost: &cost, IdempotencyKey: "rec-1"})
	require.NoError(t, err)
	assert.Equal(t, "ADJUSTMENT_PLUS", res.Movement.Type)
	assert.True(t, dec("1.75").Equal(res.Movement.UnitCost))
	assert.True(t, dec("14").Equal(res.Item.Quantity))

	lockKeys := []string{countLockKey(f.scope, c.ID), stockLockKey(f.scope, productID, locationID)}
	assert.Subset(t, f.locker.acquired, lockKeys)
}

func TestCountService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, locationID := f.stocked(t, "5", "1")

	c, err := f.countSvc.Initiate(ctx, f.scope, "auditor", InitiateCountRequest{ProductID: productID, LocationID: locationID})
	require.NoError(t, err)
	c, err = f.countSvc.Cancel(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", c.Status)

	_, err = f.countSvc.Record(ctx, f.scope, "auditor", c.ID, RecordCountRequest{CountedQuantity: dec("5"), Unit: "UN"})
	assert.True(t, shared.IsKind(err, shared.KindStateTransition))

	_, err = f.countSvc.Cancel(ctx, f.scope, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCountService_Analysis(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	p1, l1 := f.stocked(t, "100", "1")
	p2, l2 := f.stocked(t, "100", "1")
	p3, l3 := f.stocked(t, "10", "1")

	exact := f.recordedCount(t, p1, l1, "100")
	minor := f.recordedCount(t, p2, l2, "95")
	major := f.recordedCount(t, p3, l3, "4")

	req := CountSetRequest{CountIDs: []uuid.UUID{exact.ID, minor.ID, major.ID, exact.ID}}

	t.Run("anomalies", func(t *testing.T) {
		anomalies, err := f.countSvc.Anomalies(ctx, f.scope, req)
		require.NoError(t, err)
		require.Len(t, anomalies, 1)
		assert.Equal(t, inventory.AnomalyMajorDivergence, anomalies[0].Type)
		assert.Equal(t, inventory.SeverityHigh, anomalies[0].Severity)
		assert.Equal(t, major.ID, anomalies[0].CountID)
	})

	t.Run("accuracy", func(t *testing.T) {
		acc, err := f.countSvc.Accuracy(ctx, f.scope, req)
		require.NoError(t, err)
		assert.Equal(t, 3, acc.CountsEvaluated)
		assert.True(t, dec("33.33").Equal(acc.AccuracyPercent), "got %s", acc.AccuracyPercent)
	})

	t.Run("finalization blocked by unresolved divergence", func(t *testing.T) {
		check, err := f.countSvc.FinalizationCheck(ctx, f.scope, req)
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "UNRESOLVED_DIVERGENCE", check.Code)
	})

	t.Run("finalization passes for a clean set", func(t *testing.T) {
		check, err := f.countSvc.FinalizationCheck(ctx, f.scope, CountSetRequest{CountIDs: []uuid.UUID{exact.ID}})
		require.NoError(t, err)
		assert.True(t, check.Valid)
	})

	t.Run("unknown count fails the whole set", func(t *testing.T) {
		_, err := f.countSvc.Accuracy(ctx, f.scope, CountSetRequest{CountIDs: []uuid.UUID{exact.ID, uuid.New()}})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "COUNT_NOT_FOUND", de.Code)
	})

	t.Run("list by status", func(t *testing.T) {
		page, err := f.countSvc.List(ctx, f.scope, InventoryCountListFilter{Status: "divergent"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})
}
