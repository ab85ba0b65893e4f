package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memStockItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*inventory.StockItem
}

func newMemStockItemRepo() *memStockItemRepo {
	return &memStockItemRepo{items: make(map[uuid.UUID]*inventory.StockItem)}
}

func (r *memStockItemRepo) FindByID(_ context.Context, scope shared.Scope, id uuid.UUID) (*inventory.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || !item.Scope.Contains(scope) {
		return nil, shared.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *memStockItemRepo) FindByProductAndLocation(_ context.Context, scope shared.Scope, productID, locationID uuid.UUID) (*inventory.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Scope.Contains(scope) && item.ProductID == productID && item.LocationID == locationID {
			return item.Clone(), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockItemRepo) filter(scope shared.Scope, keep func(*inventory.StockItem) bool) []*inventory.StockItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockItem
	for _, item := range r.items {
		if item.Scope.Contains(scope) && keep(item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (r *memStockItemRepo) FindByProduct(_ context.Context, scope shared.Scope, productID uuid.UUID) ([]*inventory.StockItem, error) {
	return r.filter(scope, func(i *inventory.StockItem) bool { return i.ProductID == productID }), nil
}

func (r *memStockItemRepo) FindByLocation(_ context.Context, scope shared.Scope, locationID uuid.UUID) ([]*inventory.StockItem, error) {
	return r.filter(scope, func(i *inventory.StockItem) bool { return i.LocationID == locationID }), nil
}

func (r *memStockItemRepo) List(_ context.Context, scope shared.Scope, f inventory.StockItemFilter) ([]*inventory.StockItem, int64, error) {
	out := r.filter(scope, func(i *inventory.StockItem) bool {
		return (f.ProductID == nil || i.ProductID == *f.ProductID) && (f.LocationID == nil || i.LocationID == *f.LocationID)
	})
	return out, int64(len(out)), nil
}

func (r *memStockItemRepo) Save(_ context.Context, item *inventory.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.items[item.ID]
	switch {
	case item.PersistedVersion() == 0 && exists:
		return shared.ErrConcurrencyConflict
	case item.PersistedVersion() != 0 && (!exists || stored.Version != item.PersistedVersion()):
		return shared.ErrConcurrencyConflict
	}
	item.MarkPersisted()
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *memStockItemRepo) put(item *inventory.StockItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.MarkPersisted()
	r.items[item.ID] = item.Clone()
}

func (r *memStockItemRepo) get(scope shared.Scope, productID, locationID uuid.UUID) *inventory.StockItem {
	item, err := r.FindByProductAndLocation(context.Background(), scope, productID, locationID)
	if err != nil {
		return nil
	}
	return item
}

type memMovementRepo struct {
	mu        sync.Mutex
	movements []*inventory.StockMovement
	appendErr error
}

func (r *memMovementRepo) Append(_ context.Context, movements ...*inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memMovementRepo) FindByID(_ context.Context, scope shared.Scope, id uuid.UUID) (*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id && m.Scope.Contains(scope) {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindByProductAndLocation(_ context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.Scope.Contains(scope) && m.ProductID == productID && m.AffectsLocation(locationID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindByReference(_ context.Context, scope shared.Scope, refType inventory.ReferenceType, refID string) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.Scope.Contains(scope) && m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) List(_ context.Context, scope shared.Scope, f inventory.StockMovementFilter) ([]*inventory.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if !m.Scope.Contains(scope) {
			continue
		}
		if f.Type != nil && m.Type != *f.Type {
			continue
		}
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *memMovementRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
}

type memCountRepo struct {
	mu     sync.Mutex
	counts map[uuid.UUID]*inventory.InventoryCount
}

func newMemCountRepo() *memCountRepo {
	return &memCountRepo{counts: make(map[uuid.UUID]*inventory.InventoryCount)}
}

func (r *memCountRepo) FindByID(_ context.Context, scope shared.Scope, id uuid.UUID) (*inventory.InventoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counts[id]
	if !ok || !c.Scope.Contains(scope) {
		return nil, shared.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *memCountRepo) FindByIDs(_ context.Context, scope shared.Scope, ids []uuid.UUID) ([]*inventory.InventoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryCount
	for _, id := range ids {
		if c, ok := r.counts[id]; ok && c.Scope.Contains(scope) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *memCountRepo) FindOpenByProductAndLocation(_ context.Context, scope shared.Scope, productID, locationID uuid.UUID) ([]*inventory.InventoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryCount
	for _, c := range r.counts {
		if c.Scope.Contains(scope) && c.ProductID == productID && c.LocationID == locationID && c.Status().IsOpen() {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *memCountRepo) List(_ context.Context, scope shared.Scope, f inventory.InventoryCountFilter) ([]*inventory.InventoryCount, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryCount
	for _, c := range r.counts {
		if c.Scope.Contains(scope) && (f.Status == nil || c.Status() == *f.Status) {
			out = append(out, c.Clone())
		}
	}
	return out, int64(len(out)), nil
}

func (r *memCountRepo) Save(_ context.Context, c *inventory.InventoryCount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.counts[c.ID]
	if c.PersistedVersion() != 0 && (!exists || stored.Version != c.PersistedVersion()) {
		return shared.ErrConcurrencyConflict
	}
	c.MarkPersisted()
	r.counts[c.ID] = c.Clone()
	return nil
}

type memOutbox struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (o *memOutbox) SaveEvents(_ context.Context, events ...shared.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, events...)
	return nil
}

func (o *memOutbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	for i, e := range o.events {
		out[i] = e.EventType()
	}
	return out
}

// recordingLocker grants every lock and remembers the acquisition order
type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, key)
	}, nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]bool)}
}

func (m *memIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdempotency) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memIdempotency) Close() error { return nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var errStoreDown = errors.New("store down")

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	scope     shared.Scope
	items     *memStockItemRepo
	movements *memMovementRepo
	counts    *memCountRepo
	outbox    *memOutbox
	locker    *recordingLocker
	idem      *memIdempotency
	ledger    *LedgerService
	countSvc  *CountService
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		scope:     shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()},
		items:     newMemStockItemRepo(),
		movements: &memMovementRepo{},
		counts:    newMemCountRepo(),
		outbox:    &memOutbox{},
		locker:    &recordingLocker{},
		idem:      newMemIdempotency(),
		now:       time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	deps := Dependencies{
		TxScope:         NewNoOpTransactionScope(f.items, f.movements, f.counts, f.outbox),
		Items:           f.items,
		Movements:       f.movements,
		Counts:          f.counts,
		Locker:          f.locker,
		Idempotency:     f.idem,
		Clock:           fixedClock{now: f.now},
		DefaultCurrency: "BRL",
	}
	f.ledger = NewLedgerService(deps)
	f.countSvc = NewCountService(deps)
	return f
}
