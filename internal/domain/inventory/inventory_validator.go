package inventory

import (
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Divergence thresholds, as a percentage of the system quantity
var (
	MajorDivergenceThreshold = decimal.NewFromInt(10)
	HighSeverityThreshold    = decimal.NewFromInt(50)
	MaxCountDeviation        = decimal.NewFromInt(100)
)

// AnomalyType classifies a problem found in a set of counts
type AnomalyType string

const (
	AnomalyMajorDivergence AnomalyType = "MAJOR_DIVERGENCE"
	AnomalyNegativeStock   AnomalyType = "NEGATIVE_STOCK"
	AnomalyDuplicateCount  AnomalyType = "DUPLICATE_COUNT"
)

// Severity ranks anomalies; HIGH blocks finalization
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Anomaly is one finding reported by DetectAnomalies
type Anomaly struct {
	Type       AnomalyType `json:"type"`
	Severity   Severity    `json:"severity"`
	CountID    uuid.UUID   `json:"count_id"`
	ProductID  uuid.UUID   `json:"product_id"`
	LocationID uuid.UUID   `json:"location_id"`
	Message    string      `json:"message"`
}

// divergence describes how far a recorded count is from its system quantity
type divergence struct {
	percent   decimal.Decimal
	unbounded bool // system quantity is zero and the count is not
}

func (d divergence) exceeds(threshold decimal.Decimal) bool {
	return d.unbounded || d.percent.GreaterThan(threshold)
}

func (d divergence) String() string {
	if d.unbounded {
		return "unbounded"
	}
	return d.percent.StringFixed(2) + "%"
}

// measureDivergence returns ok=false when the count has not been recorded
func measureDivergence(c *InventoryCount) (divergence, bool) {
	diff, ok := c.Difference()
	if !ok {
		return divergence{}, false
	}
	if diff.IsZero() {
		return divergence{percent: decimal.Zero}, true
	}
	system := c.SystemQuantity().Value()
	if system.IsZero() {
		return divergence{unbounded: true}, true
	}
	pct := diff.Value().Abs().Div(system.Abs()).Mul(decimal.NewFromInt(100))
	return divergence{percent: pct}, true
}

// InventoryValidator gates reconciliation: count validation, anomaly detection,
// adjustment derivation and finalization checks. It is stateless.
type InventoryValidator struct{}

// NewInventoryValidator creates a new InventoryValidator
func NewInventoryValidator() *InventoryValidator {
	return &InventoryValidator{}
}

// ValidateCount accepts a count that is recorded, has no unresolved divergence,
// and deviates from the system quantity by at most 100%
func (v *InventoryValidator) ValidateCount(c *InventoryCount) error {
	if !c.IsCounted() {
		return shared.NewInvariantError("COUNT_NOT_RECORDED", "count %s has not been recorded", c.ID)
	}
	if c.HasDivergence() && !c.IsAdjusted() {
		return shared.NewInvariantError("UNRESOLVED_DIVERGENCE", "count %s has an unresolved divergence", c.ID)
	}
	return checkDeviation(c)
}

// ValidateForAdjustment accepts a recorded DIVERGENT count. The deviation
// limit does not apply: DIVERGENT can only move to COMPLETED, so every
// divergence must stay adjustable.
func (v *InventoryValidator) ValidateForAdjustment(c *InventoryCount) error {
	if !c.IsCounted() {
		return shared.NewInvariantError("COUNT_NOT_RECORDED", "count %s has not been recorded", c.ID)
	}
	if c.Status() != InventoryStatusDivergent || !c.HasDivergence() {
		return shared.NewInvariantError("NO_DIVERGENCE", "count %s has no divergence to adjust", c.ID)
	}
	return nil
}

func checkDeviation(c *InventoryCount) error {
	d, _ := measureDivergence(c)
	if d.exceeds(MaxCountDeviation) {
		return shared.NewInvariantError("EXCESSIVE_DIVERGENCE",
			"count %s deviates %s from the system quantity, above the %s%% limit", c.ID, d, MaxCountDeviation)
	}
	return nil
}

// CalculateAdjustment derives the movement that brings stock in line with a divergent count.
// A surplus becomes ADJUSTMENT_PLUS into the location, a shortage ADJUSTMENT_MINUS out of it.
func (v *InventoryValidator) CalculateAdjustment(c *InventoryCount, executedBy string, unitCost valueobject.Money, movementID uuid.UUID, executedAt time.Time) (*StockMovement, error) {
	if !c.HasDivergence() {
		return nil, shared.NewInvariantError("NO_DIVERGENCE", "count %s has no divergence to adjust", c.ID)
	}
	if c.IsAdjusted() {
		return nil, shared.NewInvariantError("ALREADY_ADJUSTED", "count %s already has an adjustment", c.ID)
	}
	diff, _ := c.Difference()
	counted, _ := c.CountedQuantity()
	location := c.LocationID

	p := StockMovementParams{
		ID:            movementID,
		Scope:         c.Scope,
		ProductID:     c.ProductID,
		Quantity:      diff.Abs(),
		UnitCost:      unitCost,
		ReferenceType: ReferenceTypeInventory,
		ReferenceID:   c.ID.String(),
		Reason:        fmt.Sprintf("inventory count adjustment: system %s, counted %s", c.SystemQuantity(), counted),
		ExecutedBy:    executedBy,
		ExecutedAt:    executedAt,
	}
	if diff.IsPositive() {
		p.Type = MovementTypeAdjustmentPlus
		p.ToLocationID = &location
	} else {
		p.Type = MovementTypeAdjustmentMinus
		p.FromLocationID = &location
	}
	return NewStockMovement(p)
}

// DetectAnomalies scans counts for large divergences, negative counts and duplicate
// product/location keys. Inputs are not modified.
func (v *InventoryValidator) DetectAnomalies(counts []*InventoryCount) []Anomaly {
	type key struct{ product, location uuid.UUID }
	seen := make(map[key]bool, len(counts))
	anomalies := make([]Anomaly, 0)

	for _, c := range counts {
		if c == nil {
			continue
		}
		base := Anomaly{CountID: c.ID, ProductID: c.ProductID, LocationID: c.LocationID}

		if d, ok := measureDivergence(c); ok && d.exceeds(MajorDivergenceThreshold) {
			a := base
			a.Type = AnomalyMajorDivergence
			a.Severity = SeverityMedium
			if d.exceeds(HighSeverityThreshold) {
				a.Severity = SeverityHigh
			}
			a.Message = fmt.Sprintf("divergence of %s against system quantity %s", d, c.SystemQuantity())
			anomalies = append(anomalies, a)
		}

		if counted, ok := c.CountedQuantity(); ok && counted.IsNegative() {
			a := base
			a.Type = AnomalyNegativeStock
			a.Severity = SeverityHigh
			a.Message = fmt.Sprintf("counted quantity %s is negative", counted)
			anomalies = append(anomalies, a)
		}

		k := key{c.ProductID, c.LocationID}
		if seen[k] {
			a := base
			a.Type = AnomalyDuplicateCount
			a.Severity = SeverityMedium
			a.Message = "another count exists for the same product and location"
			anomalies = append(anomalies, a)
		}
		seen[k] = true
	}
	return anomalies
}

// CalculateAccuracy returns the percentage of recorded counts with no divergence
func (v *InventoryValidator) CalculateAccuracy(counts []*InventoryCount) (decimal.Decimal, error) {
	total, accurate := 0, 0
	for _, c := range counts {
		if c == nil || !c.IsCounted() {
			continue
		}
		total++
		if !c.HasDivergence() {
			accurate++
		}
	}
	if total == 0 {
		return decimal.Zero, shared.NewValidationError("NO_COUNTS", "no recorded counts to measure accuracy")
	}
	return decimal.NewFromInt(int64(accurate)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2), nil
}

// ValidateForFinalization accepts a set of counts only if every one is recorded,
// every divergence is adjusted, and no HIGH severity anomaly is present
func (v *InventoryValidator) ValidateForFinalization(counts []*InventoryCount) error {
	for _, c := range counts {
		if c == nil {
			continue
		}
		if !c.IsCounted() {
			return shared.NewInvariantError("COUNT_NOT_RECORDED", "count %s has not been recorded", c.ID)
		}
		if c.HasDivergence() && !c.IsAdjusted() {
			return shared.NewInvariantError("UNRESOLVED_DIVERGENCE", "count %s has an unresolved divergence", c.ID)
		}
	}
	for _, a := range v.DetectAnomalies(counts) {
		if a.Severity == SeverityHigh {
			return shared.NewInvariantError("HIGH_SEVERITY_ANOMALY",
				"count %s has a %s anomaly: %s", a.CountID, a.Type, a.Message)
		}
	}
	return nil
}
