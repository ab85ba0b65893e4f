package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	scope := Scope{OrganizationID: uuid.New(), BranchID: uuid.New()}
	ev := &stubEvent{NewBaseDomainEvent(EventMeta{ID: uuid.New(), OccurredAt: now}, "StockReserved", "StockItem", uuid.New(), scope)}

	entry := NewOutboxEntry(uuid.New(), ev, []byte(`{}`), now)

	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, scope.OrganizationID, entry.OrganizationID)
	assert.Equal(t, scope.BranchID, entry.BranchID)
	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, "StockReserved", entry.EventType)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, now, entry.CreatedAt)
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	now := time.Now()

	t.Run("resets dead letter entry for retry", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			Status:     OutboxStatusDead,
			RetryCount: 5,
			MaxRetries: 5,
			LastError:  "some error",
		}

		require.NoError(t, entry.ResetForRetry(now))
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.Equal(t, now, entry.UpdatedAt)
	})

	t.Run("fails for non-dead entry", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{Status: status}
			err := entry.ResetForRetry(now)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "can only retry dead letter entries")
		}
	})
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	now := time.Now()

	t.Run("from pending", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusPending}
		require.NoError(t, entry.MarkProcessing(now))
		assert.Equal(t, OutboxStatusProcessing, entry.Status)
	})

	t.Run("rejects sent entries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusSent}
		assert.Error(t, entry.MarkProcessing(now))
	})
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		Status:     OutboxStatusProcessing,
		RetryCount: 4,
		MaxRetries: 5,
	}

	entry.MarkFailed("final error", time.Now())

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, 5, entry.RetryCount)
	assert.Equal(t, "final error", entry.LastError)
	assert.True(t, entry.IsDead())
	assert.False(t, entry.CanRetry())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 5}

	entry.MarkFailed("error 1", now)
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	require.NotNil(t, entry.NextRetryAt)
	assert.Equal(t, time.Second, entry.NextRetryAt.Sub(now))
	assert.True(t, entry.CanRetry())

	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 2", now)
	assert.Equal(t, 2*time.Second, entry.NextRetryAt.Sub(now))

	entry.Status = OutboxStatusProcessing
	entry.MarkFailed("error 3", now)
	assert.Equal(t, 4*time.Second, entry.NextRetryAt.Sub(now))
	assert.Equal(t, 3, entry.RetryCount)
}
