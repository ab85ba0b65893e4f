package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	eventapp "github.com/erp/warehouse/internal/application/event"
	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/event"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv runs the handlers over real services on an in-memory database
type testEnv struct {
	db     *gorm.DB
	engine *gin.Engine
	scope  shared.Scope
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())

	database, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	db := database.DB

	idempotency := cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = idempotency.Close() })

	deps := inventoryapp.Dependencies{
		TxScope:     persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(event.NewLedgerSerializer())),
		Items:       persistence.NewGormStockItemRepository(db),
		Movements:   persistence.NewGormStockMovementRepository(db),
		Counts:      persistence.NewGormInventoryCountRepository(db),
		Locker:      cache.NewInMemoryKeyLocker(),
		Idempotency: idempotency,
		Logger:      zap.NewNop(),
	}
	ledger := inventoryapp.NewLedgerService(deps)
	counts := inventoryapp.NewCountService(deps)
	outbox := eventapp.NewOutboxService(event.NewGormOutboxRepository(db), zap.NewNop())

	stock := NewStockHandler(ledger)
	valuation := NewValuationHandler(ledger)
	countH := NewInventoryCountHandler(counts)
	outboxH := NewOutboxHandler(outbox)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1", middleware.Authenticate(middleware.AuthConfig{DevHeaders: true}))

	api.POST("/stock/entries", stock.Receive)
	api.POST("/stock/exits", stock.Issue)
	api.POST("/stock/pickings", stock.Pick)
	api.POST("/stock/returns", stock.Return)
	api.POST("/stock/transfers", stock.Transfer)
	api.POST("/stock/reservations", stock.Reserve)
	api.POST("/stock/reservations/release", stock.Release)
	api.POST("/stock/adjustments", stock.Adjust)
	api.GET("/stock-items", stock.ListItems)
	api.GET("/stock-items/:id", stock.GetItem)
	api.PUT("/stock-items/:id/unit-cost", stock.UpdateUnitCost)
	api.GET("/stock-movements", stock.ListMovements)
	api.GET("/stock-movements/:id", stock.GetMovement)

	api.GET("/valuation/average-cost", valuation.AverageCost)
	api.GET("/valuation/fifo-cost", valuation.FIFOCost)
	api.GET("/valuation/total", valuation.TotalValue)
	api.POST("/valuation/projection", valuation.Projection)
	api.GET("/valuation/coverage", valuation.Coverage)
	api.GET("/valuation/turnover", valuation.Turnover)

	api.POST("/inventory-counts", countH.Initiate)
	api.GET("/inventory-counts", countH.List)
	api.POST("/inventory-counts/anomalies", countH.Anomalies)
	api.POST("/inventory-counts/accuracy", countH.Accuracy)
	api.POST("/inventory-counts/finalization-check", countH.FinalizationCheck)
	api.GET("/inventory-counts/:id", countH.Get)
	api.GET("/inventory-counts/:id/validation", countH.Validate)
	api.POST("/inventory-counts/:id/start", countH.Start)
	api.POST("/inventory-counts/:id/cancel", countH.Cancel)
	api.POST("/inventory-counts/:id/record", countH.Record)
	api.POST("/inventory-counts/:id/reconcile", countH.Reconcile)

	api.GET("/admin/outbox/dead", outboxH.DeadLetters)
	api.POST("/admin/outbox/dead/retry", outboxH.RetryAllDeadEntries)
	api.GET("/admin/outbox/stats", outboxH.Stats)
	api.GET("/admin/outbox/entries/:id", outboxH.GetEntry)
	api.POST("/admin/outbox/entries/:id/retry", outboxH.RetryDeadEntry)

	return &testEnv{
		db:     db,
		engine: r,
		scope:  shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()},
	}
}

// do sends body as JSON with the env's dev identity headers
func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.OrganizationIDHeader, e.scope.OrganizationID.String())
	req.Header.Set(middleware.BranchIDHeader, e.scope.BranchID.String())
	req.Header.Set(middleware.UserIDHeader, "operator")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and its data into data when non-nil
func decode(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data), w.Body.String())
	}
	return envelope.Response
}

// receive books an ENTRY and returns the resulting stock item
func (e *testEnv) receive(t *testing.T, productID, locationID uuid.UUID, quantity, unitCost string) inventoryapp.StockItemResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/stock/entries", map[string]any{
		"product_id":     productID,
		"location_id":    locationID,
		"quantity":       quantity,
		"unit":           "UN",
		"unit_cost":      unitCost,
		"reference_type": "FISCAL_DOCUMENT",
		"reference_id":   "NF-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result inventoryapp.MovementResultResponse
	decode(t, w, &result)
	require.Len(t, result.Items, 1)
	return result.Items[0]
}

// newTestEnvSharing returns a view of e under a fresh tenant scope
func newTestEnvSharing(e *testEnv) *testEnv {
	return &testEnv{
		db:     e.db,
		engine: e.engine,
		scope:  shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New()},
	}
}
