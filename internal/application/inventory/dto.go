package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItemResponse represents a stock item in API responses
type StockItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrganizationID    uuid.UUID       `json:"organization_id"`
	BranchID          uuid.UUID       `json:"branch_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	Unit              string          `json:"unit"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Currency          string          `json:"currency"`
	LotNumber         string          `json:"lot_number,omitempty"`
	ExpirationDate    *time.Time      `json:"expiration_date,omitempty"`
	IsExpired         bool            `json:"is_expired"`
	IsNearExpiration  bool            `json:"is_near_expiration"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToStockItemResponse converts a domain StockItem, evaluating expiration at now
func ToStockItemResponse(item *inventory.StockItem, now time.Time) StockItemResponse {
	return StockItemResponse{
		ID:                item.ID,
		OrganizationID:    item.OrganizationID,
		BranchID:          item.BranchID,
		ProductID:         item.ProductID,
		LocationID:        item.LocationID,
		Unit:              item.Unit().String(),
		Quantity:          item.Quantity().Value(),
		ReservedQuantity:  item.ReservedQuantity().Value(),
		AvailableQuantity: item.AvailableQuantity().Value(),
		UnitCost:          item.UnitCost().Amount(),
		TotalCost:         item.TotalCost().Amount(),
		Currency:          item.UnitCost().Currency().String(),
		LotNumber:         item.LotNumber(),
		ExpirationDate:    item.ExpirationDate(),
		IsExpired:         item.IsExpired(now),
		IsNearExpiration:  item.IsNearExpiration(now, inventory.DefaultNearExpirationDays),
		Version:           item.Version,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// StockMovementResponse represents a ledger entry in API responses
type StockMovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	FromLocationID *uuid.UUID      `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID      `json:"to_location_id,omitempty"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Currency       string          `json:"currency"`
	ReferenceType  string          `json:"reference_type,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	ExecutedBy     string          `json:"executed_by"`
	ExecutedAt     time.Time       `json:"executed_at"`
}

// ToStockMovementResponse converts a domain StockMovement
func ToStockMovementResponse(m *inventory.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Type:           m.Type.String(),
		Quantity:       m.Quantity().Value(),
		Unit:           m.Quantity().Unit().String(),
		UnitCost:       m.UnitCost().Amount(),
		TotalCost:      m.TotalCost().Amount(),
		Currency:       m.UnitCost().Currency().String(),
		ReferenceType:  m.ReferenceType.String(),
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		ExecutedBy:     m.ExecutedBy,
		ExecutedAt:     m.ExecutedAt,
	}
}

// ToStockMovementResponses converts a slice of movements
func ToStockMovementResponses(movements []*inventory.StockMovement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = ToStockMovementResponse(m)
	}
	return out
}

// MovementResultResponse is returned by every stock command.
// Items holds the affected stock items: one, or source then destination for a transfer.
type MovementResultResponse struct {
	Movement *StockMovementResponse `json:"movement,omitempty"`
	Items    []StockItemResponse    `json:"items"`
}

// InventoryCountResponse represents an inventory count in API responses
type InventoryCountResponse struct {
	ID                   uuid.UUID        `json:"id"`
	ProductID            uuid.UUID        `json:"product_id"`
	LocationID           uuid.UUID        `json:"location_id"`
	Status               string           `json:"status"`
	Unit                 string           `json:"unit"`
	SystemQuantity       decimal.Decimal  `json:"system_quantity"`
	CountedQuantity      *decimal.Decimal `json:"counted_quantity,omitempty"`
	Difference           *decimal.Decimal `json:"difference,omitempty"`
	CountedBy            string           `json:"counted_by,omitempty"`
	CountedAt            *time.Time       `json:"counted_at,omitempty"`
	AdjustmentMovementID *uuid.UUID       `json:"adjustment_movement_id,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	Version              int              `json:"version"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ToInventoryCountResponse converts a domain InventoryCount
func ToInventoryCountResponse(c *inventory.InventoryCount) InventoryCountResponse {
	resp := InventoryCountResponse{
		ID:                   c.ID,
		ProductID:            c.ProductID,
		LocationID:           c.LocationID,
		Status:               c.Status().String(),
		Unit:                 c.SystemQuantity().Unit().String(),
		SystemQuantity:       c.SystemQuantity().Value(),
		CountedBy:            c.CountedBy(),
		CountedAt:            c.CountedAt(),
		AdjustmentMovementID: c.AdjustmentMovementID(),
		Notes:                c.Notes,
		Version:              c.Version,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	if counted, ok := c.CountedQuantity(); ok {
		v := counted.Value()
		resp.CountedQuantity = &v
	}
	if diff, ok := c.Difference(); ok {
		v := diff.Value()
		resp.Difference = &v
	}
	return resp
}

// ReconcileResponse is returned after a divergent count has been adjusted
type ReconcileResponse struct {
	Count    InventoryCountResponse `json:"count"`
	Movement StockMovementResponse  `json:"movement"`
	Item     StockItemResponse      `json:"item"`
}

// MoneyResponse is a monetary amount with its currency
type MoneyResponse struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func toMoneyResponse(m valueobject.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount(), Currency: m.Currency().String()}
}

// QuantityResponse is a quantity with its unit
type QuantityResponse struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

func toQuantityResponse(q valueobject.StockQuantity) QuantityResponse {
	return QuantityResponse{Value: q.Value(), Unit: q.Unit().String()}
}

// ProjectionResponse is the outcome of a stock projection
type ProjectionResponse struct {
	Current   QuantityResponse `json:"current"`
	Projected QuantityResponse `json:"projected"`
}

// CoverageResponse reports how many whole days the current stock lasts
type CoverageResponse struct {
	Current QuantityResponse `json:"current"`
	Days    int64            `json:"days"`
}

// TurnoverResponse reports sold quantity over average stock
type TurnoverResponse struct {
	Turnover decimal.Decimal `json:"turnover"`
}

// AccuracyResponse reports the share of recorded counts without divergence
type AccuracyResponse struct {
	AccuracyPercent decimal.Decimal `json:"accuracy_percent"`
	CountsEvaluated int             `json:"counts_evaluated"`
}

// CheckResponse reports whether a validation passed and, if not, why
type CheckResponse struct {
	Valid  bool   `json:"valid"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// StockItemListFilter represents filter options for stock item listings
type StockItemListFilter struct {
	ProductID  string `form:"product_id"`
	LocationID string `form:"location_id"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at updated_at quantity"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StockMovementListFilter represents filter options for ledger listings
type StockMovementListFilter struct {
	ProductID     string `form:"product_id"`
	LocationID    string `form:"location_id"`
	Type          string `form:"type"`
	ReferenceType string `form:"reference_type"`
	ReferenceID   string `form:"reference_id"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InventoryCountListFilter represents filter options for count listings
type InventoryCountListFilter struct {
	ProductID  string `form:"product_id"`
	LocationID string `form:"location_id"`
	Status     string `form:"status"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StockKeyQuery names one product at one location
type StockKeyQuery struct {
	ProductID  string `form:"product_id" binding:"required"`
	LocationID string `form:"location_id" binding:"required"`
}

// FIFOCostQuery prices a quantity against the oldest entries first
type FIFOCostQuery struct {
	StockKeyQuery
	Quantity string `form:"quantity" binding:"required"`
	Unit     string `form:"unit" binding:"required"`
}

// TotalValueQuery values every stock item of one product or one location
type TotalValueQuery struct {
	ProductID  string `form:"product_id"`
	LocationID string `form:"location_id"`
}

// CoverageQuery asks how long the current stock lasts at a daily usage
type CoverageQuery struct {
	StockKeyQuery
	AvgDailyUsage string `form:"avg_daily_usage" binding:"required"`
}

// TurnoverQuery carries sold quantity and average stock in one unit
type TurnoverQuery struct {
	Sold         string `form:"sold" binding:"required"`
	AverageStock string `form:"average_stock" binding:"required"`
	Unit         string `form:"unit" binding:"required"`
}

func pageFilter(page, pageSize int, orderBy, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	f.Page = page
	f.PageSize = pageSize
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	f.OrderDir = orderDir
	return f.Normalize()
}

// MovementRequest holds the fields shared by single-location stock commands
type MovementRequest struct {
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	LocationID    uuid.UUID       `json:"location_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	Unit          string          `json:"unit" binding:"required"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id" binding:"max=100"`
	Reason        string          `json:"reason" binding:"max=500"`
	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// ReceiveRequest is an ENTRY into a location
type ReceiveRequest struct {
	MovementRequest
	UnitCost       decimal.Decimal `json:"unit_cost" binding:"decimal_gte0"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	LotNumber      string          `json:"lot_number" binding:"max=50"`
	ExpirationDate *time.Time      `json:"expiration_date"`
}

// ReturnRequest is a RETURN into a location. UnitCost is used only when the
// product has no stock item there yet.
type ReturnRequest struct {
	MovementRequest
	UnitCost *decimal.Decimal `json:"unit_cost" binding:"omitempty,decimal_gte0"`
	Currency string           `json:"currency" binding:"omitempty,len=3"`
}

// TransferRequest moves stock between two locations
type TransferRequest struct {
	ProductID      uuid.UUID       `json:"product_id" binding:"required"`
	FromLocationID uuid.UUID       `json:"from_location_id" binding:"required"`
	ToLocationID   uuid.UUID       `json:"to_location_id" binding:"required,uuid_nefield=FromLocationID"`
	Quantity       decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	Unit           string          `json:"unit" binding:"required"`
	ReferenceType  string          `json:"reference_type"`
	ReferenceID    string          `json:"reference_id" binding:"max=100"`
	Reason         string          `json:"reason" binding:"max=500"`
	IdempotencyKey string          `json:"-"`
}

// AdjustRequest is a manual correction outside an inventory count
type AdjustRequest struct {
	MovementRequest
	Type string `json:"type" binding:"required,oneof=ADJUSTMENT_PLUS ADJUSTMENT_MINUS"`
}

// UpdateUnitCostRequest replaces the unit cost of a stock item
type UpdateUnitCostRequest struct {
	UnitCost decimal.Decimal `json:"unit_cost" binding:"decimal_gte0"`
	Currency string          `json:"currency" binding:"omitempty,len=3"`
}

// PlannedMovementRequest is one entry of a projection
type PlannedMovementRequest struct {
	Type     string          `json:"type" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
}

// ProjectionRequest projects the stock of a product at a location
type ProjectionRequest struct {
	ProductID  uuid.UUID                `json:"product_id" binding:"required"`
	LocationID uuid.UUID                `json:"location_id" binding:"required"`
	Movements  []PlannedMovementRequest `json:"movements" binding:"dive"`
}

// InitiateCountRequest opens a count, snapshotting the current system quantity.
// Unit is needed only when the product has no stock item at the location.
type InitiateCountRequest struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required"`
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	Unit       string    `json:"unit"`
	Notes      string    `json:"notes" binding:"max=500"`
}

// RecordCountRequest carries the physical count
type RecordCountRequest struct {
	CountedQuantity decimal.Decimal `json:"counted_quantity" binding:"decimal_gte0"`
	Unit            string          `json:"unit" binding:"required"`
}

// ReconcileRequest adjusts stock to a divergent count. Without UnitCost the
// stock item's current unit cost prices the adjustment.
type ReconcileRequest struct {
	UnitCost       *decimal.Decimal `json:"unit_cost" binding:"omitempty,decimal_gte0"`
	Currency       string           `json:"currency" binding:"omitempty,len=3"`
	IdempotencyKey string           `json:"-"`
}

// CountSetRequest names the counts an analysis runs over
type CountSetRequest struct {
	CountIDs []uuid.UUID `json:"count_ids" binding:"required,min=1,max=500"`
}
