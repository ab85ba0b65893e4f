package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Command outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// LedgerMetrics records ledger activity: movements appended, command outcomes and
// latency, count transitions, and periodically sampled stock gauges.
type LedgerMetrics struct {
	logger *zap.Logger

	movementsTotal   *Counter
	movementQuantity *FloatCounter
	commandsTotal    *Counter
	commandDuration  *Histogram
	countTransitions *Counter

	openCounts    *Gauge
	reservedItems *Gauge

	provider    LedgerStateProvider
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// LedgerStateProvider supplies point-in-time figures for the gauges
type LedgerStateProvider interface {
	// OpenCountsByStatus returns counts still PENDING or IN_PROGRESS, keyed by status
	OpenCountsByStatus(ctx context.Context) (map[string]int64, error)
	// ReservedItemCount returns how many stock items hold a reservation
	ReservedItemCount(ctx context.Context) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider LedgerStateProvider
}

// NewLedgerMetrics creates the ledger instruments on the given meter
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		logger:   logger,
		provider: cfg.Provider,
		stopChan: make(chan struct{}),
	}

	var err error
	if lm.movementsTotal, err = NewCounter(cfg.Meter,
		"ledger_movements_total", "Stock movements appended to the ledger", "{movements}"); err != nil {
		return nil, err
	}
	if lm.movementQuantity, err = NewFloatCounter(cfg.Meter,
		"ledger_movement_quantity_total", "Quantity moved, by movement type and unit", "{units}"); err != nil {
		return nil, err
	}
	if lm.commandsTotal, err = NewCounter(cfg.Meter,
		"ledger_commands_total", "Ledger commands by outcome", "{commands}"); err != nil {
		return nil, err
	}
	if lm.commandDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_command_duration_seconds",
		Description: "Ledger command latency, lock wait included",
		Unit:        "s",
		Boundaries:  CommandDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.countTransitions, err = NewCounter(cfg.Meter,
		"ledger_inventory_count_transitions_total", "Inventory count status changes", "{transitions}"); err != nil {
		return nil, err
	}
	if lm.openCounts, err = NewGauge(cfg.Meter,
		"ledger_inventory_counts_open", "Inventory counts not yet recorded", "{counts}"); err != nil {
		return nil, err
	}
	if lm.reservedItems, err = NewGauge(cfg.Meter,
		"ledger_stock_items_reserved", "Stock items holding a reservation", "{items}"); err != nil {
		return nil, err
	}
	return lm, nil
}

// RecordMovement counts one appended movement and its quantity
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, organizationID uuid.UUID, movementType, unit string, quantity decimal.Decimal) {
	lm.movementsTotal.Inc(ctx,
		AttrOrganizationID.String(organizationID.String()),
		AttrMovementType.String(movementType),
	)
	lm.movementQuantity.Add(ctx, quantity.InexactFloat64(),
		AttrMovementType.String(movementType),
		AttrUnit.String(unit),
	)
}

// RecordCommand records the outcome and latency of one command.
// errorCode is empty on success.
func (lm *LedgerMetrics) RecordCommand(ctx context.Context, command, outcome, errorCode string, elapsed time.Duration) {
	attrs := []attribute.KeyValue{AttrCommand.String(command), AttrOutcome.String(outcome)}
	if errorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(errorCode))
	}
	lm.commandsTotal.Inc(ctx, attrs...)
	lm.commandDuration.RecordDuration(ctx, elapsed, AttrCommand.String(command))
}

// RecordCountTransition counts an inventory count entering status
func (lm *LedgerMetrics) RecordCountTransition(ctx context.Context, organizationID uuid.UUID, status string) {
	lm.countTransitions.Inc(ctx,
		AttrOrganizationID.String(organizationID.String()),
		AttrCountStatus.String(status),
	)
}

// StartPeriodicCollection samples the gauges every interval (default 1 minute) until
// Stop is called or ctx is done. It returns immediately.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collect(ctx)
	for {
		select {
		case <-lm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			lm.collect(ctx)
		}
	}
}

func (lm *LedgerMetrics) collect(ctx context.Context) {
	if lm.provider == nil {
		return
	}
	byStatus, err := lm.provider.OpenCountsByStatus(ctx)
	if err != nil {
		lm.logger.Warn("Failed to sample open inventory counts", zap.Error(err))
	} else {
		for status, n := range byStatus {
			lm.openCounts.Record(ctx, n, AttrCountStatus.String(status))
		}
	}

	reserved, err := lm.provider.ReservedItemCount(ctx)
	if err != nil {
		lm.logger.Warn("Failed to sample reserved stock items", zap.Error(err))
		return
	}
	lm.reservedItems.Record(ctx, reserved)
}

// Stop ends periodic collection. Safe to call more than once.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}
