package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dependencies bundles what the ledger and count services share.
// Locker, Idempotency and Metrics are optional.
type Dependencies struct {
	TxScope     TransactionScope
	Items       inventory.StockItemRepository
	Movements   inventory.StockMovementRepository
	Counts      inventory.InventoryCountRepository
	Locker      shared.KeyLocker
	Idempotency shared.IdempotencyStore
	IDs         IDGenerator
	Clock       Clock
	Logger      *zap.Logger

	IdempotencyTTL  time.Duration
	DefaultCurrency string
}

// commandRunner wraps each mutating command: span, idempotency key, per-key
// locks, one transaction, then metrics. Locks are taken in sorted order so two
// commands over the same keys cannot deadlock.
type commandRunner struct {
	service        string
	txScope        TransactionScope
	locker         shared.KeyLocker
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	ids            IDGenerator
	clock          Clock
	logger         *zap.Logger
	metrics        *telemetry.LedgerMetrics
}

func newCommandRunner(service string, deps Dependencies) *commandRunner {
	r := &commandRunner{
		service:        service,
		txScope:        deps.TxScope,
		locker:         deps.Locker,
		idempotency:    deps.Idempotency,
		idempotencyTTL: deps.IdempotencyTTL,
		ids:            deps.IDs,
		clock:          deps.Clock,
		logger:         deps.Logger,
	}
	if r.ids == nil {
		r.ids = UUIDGenerator{}
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.idempotencyTTL <= 0 {
		r.idempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	return r
}

// command describes one invocation for the runner
type command struct {
	name           string
	scope          shared.Scope
	lockKeys       []string
	idempotencyKey string
	attrs          []any
}

// run executes fn inside the command envelope
func (r *commandRunner) run(ctx context.Context, cmd command, fn func(ctx context.Context, repos TransactionalRepositories) error) (err error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, r.service, cmd.name,
		telemetry.WithAttribute(telemetry.SpanAttrOrganizationID, cmd.scope.OrganizationID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrBranchID, cmd.scope.BranchID.String()),
	)
	defer span.End()
	telemetry.SetAttributes(span, cmd.attrs...)
	if cmd.idempotencyKey != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrIdempotencyKey, cmd.idempotencyKey)
	}

	defer func() {
		telemetry.RecordError(span, err)
		r.observe(ctx, cmd, started, err)
	}()

	if err := cmd.scope.Validate(); err != nil {
		return err
	}

	if cmd.idempotencyKey != "" && r.idempotency != nil {
		key := idempotencyKey(cmd.scope, cmd.name, cmd.idempotencyKey)
		fresh, markErr := r.idempotency.MarkProcessed(ctx, key, r.idempotencyTTL)
		if markErr != nil {
			return fmt.Errorf("idempotency check: %w", markErr)
		}
		if !fresh {
			return shared.ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if forgetErr := r.idempotency.Forget(context.WithoutCancel(ctx), key); forgetErr != nil {
				r.logger.Warn("Failed to release idempotency key",
					zap.String("command", cmd.name), zap.Error(forgetErr))
			}
		}()
	}

	unlock, err := r.lockAll(ctx, cmd.lockKeys)
	if err != nil {
		return err
	}
	defer unlock()
	telemetry.AddEvent(span, "locks_acquired", "count", len(cmd.lockKeys))

	telemetry.WithProfilingLabels(ctx, telemetry.CommandLabels(r.service, cmd.name), func(ctx context.Context) {
		err = r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			return fn(ctx, repos)
		})
	})
	return err
}

// lockAll acquires every key in sorted order and returns a func releasing them in reverse
func (r *commandRunner) lockAll(ctx context.Context, keys []string) (func(), error) {
	if r.locker == nil || len(keys) == 0 {
		return func() {}, nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		unlock, err := r.locker.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}

func (r *commandRunner) observe(ctx context.Context, cmd command, started time.Time, err error) {
	outcome, code := classify(err)
	if r.metrics != nil {
		r.metrics.RecordCommand(ctx, cmd.name, outcome, code, time.Since(started))
	}

	fields := []zap.Field{
		zap.String("command", cmd.name),
		zap.String("organization_id", cmd.scope.OrganizationID.String()),
		zap.String("branch_id", cmd.scope.BranchID.String()),
		zap.Duration("elapsed", time.Since(started)),
	}
	switch outcome {
	case telemetry.OutcomeSuccess:
		r.logger.Debug("Ledger command completed", fields...)
	case telemetry.OutcomeError:
		r.logger.Error("Ledger command failed", append(fields, zap.Error(err))...)
	default:
		r.logger.Info("Ledger command rejected", append(fields, zap.String("code", code), zap.String("reason", err.Error()))...)
	}
}

// classify maps a command error to a metrics outcome and its error code
func classify(err error) (outcome, code string) {
	if err == nil {
		return telemetry.OutcomeSuccess, ""
	}
	if errors.Is(err, shared.ErrDuplicateRequest) {
		return telemetry.OutcomeDuplicate, shared.ErrDuplicateRequest.Code
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Kind != shared.KindCorrupted {
		return telemetry.OutcomeRejected, de.Code
	}
	return telemetry.OutcomeError, ""
}

func (r *commandRunner) eventMeta() shared.EventMeta {
	return shared.EventMeta{ID: r.ids.NewID(), OccurredAt: r.clock.Now()}
}

// recordMovements feeds committed movements into the ledger metrics
func (r *commandRunner) recordMovements(ctx context.Context, movements ...*inventory.StockMovement) {
	if r.metrics == nil {
		return
	}
	for _, m := range movements {
		r.metrics.RecordMovement(ctx, m.Scope.OrganizationID, m.Type.String(), m.Quantity().Unit().String(), m.Quantity().Value())
	}
}

// stockLockKey names the lock serializing writes to one product at one location
func stockLockKey(scope shared.Scope, productID, locationID uuid.UUID) string {
	return fmt.Sprintf("stock:%s:%s:%s:%s", scope.OrganizationID, scope.BranchID, productID, locationID)
}

// countLockKey names the lock serializing writes to one inventory count
func countLockKey(scope shared.Scope, countID uuid.UUID) string {
	return fmt.Sprintf("count:%s:%s:%s", scope.OrganizationID, scope.BranchID, countID)
}

func idempotencyKey(scope shared.Scope, command, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s:%s", scope.OrganizationID, scope.BranchID, command, key)
}
