package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testEventType = "TestLedgerEvent"

var testNow = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

type testEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

func newTestEvent(scope shared.Scope, note string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			shared.EventMeta{ID: uuid.New(), OccurredAt: testNow},
			testEventType, "StockItem", uuid.New(), scope),
		Note: note,
	}
}

func testScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()}
}

func testSerializer() *EventSerializer {
	s := NewLedgerSerializer()
	s.Register(testEventType, &testEvent{})
	return s
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// recordingHandler remembers every event it sees and can be told to fail
type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	fail   error
	panics bool
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.fail
}

func (h *recordingHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}

var errHandler = errors.New("downstream unavailable")
