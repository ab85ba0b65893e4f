package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
)

// TransactionScope runs a unit of work atomically.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the ledger stores bound to one transaction.
//
// Stock items and counts are aggregate roots saved with optimistic locking.
// Movements are append-only. Outbox entries are written in the same transaction
// so events are published only for committed changes.
type TransactionalRepositories interface {
	StockItems() inventory.StockItemRepository
	Movements() inventory.StockMovementRepository
	Counts() inventory.InventoryCountRepository
	Outbox() shared.OutboxEventSaver
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used by tests and single-process setups without a database.
type NoOpTransactionScope struct {
	items     inventory.StockItemRepository
	movements inventory.StockMovementRepository
	counts    inventory.InventoryCountRepository
	outbox    shared.OutboxEventSaver
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	items inventory.StockItemRepository,
	movements inventory.StockMovementRepository,
	counts inventory.InventoryCountRepository,
	outbox shared.OutboxEventSaver,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{items: items, movements: movements, counts: counts, outbox: outbox}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) StockItems() inventory.StockItemRepository {
	return s.items
}

func (s *NoOpTransactionScope) Movements() inventory.StockMovementRepository {
	return s.movements
}

func (s *NoOpTransactionScope) Counts() inventory.InventoryCountRepository {
	return s.counts
}

func (s *NoOpTransactionScope) Outbox() shared.OutboxEventSaver {
	return s.outbox
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
