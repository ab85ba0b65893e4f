package event

import (
	"context"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveEntries(t *testing.T, repo *GormOutboxRepository, n int, createdAt time.Time) []*shared.OutboxEntry {
	t.Helper()
	entries := make([]*shared.OutboxEntry, n)
	for i := range entries {
		entries[i] = shared.NewOutboxEntry(uuid.New(), newTestEvent(testScope(), "e"), []byte(`{}`), createdAt.Add(time.Duration(i)*time.Second))
	}
	require.NoError(t, repo.Save(context.Background(), entries...))
	return entries
}

func TestGormOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(newTestDB(t))
	entries := saveEntries(t, repo, 3, testNow)

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, entries[0].ID, pending[0].ID, "oldest first")

	t.Run("claim skips entries that are no longer claimable", func(t *testing.T) {
		claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entries[0].ID, entries[1].ID}, testNow)
		require.NoError(t, err)
		assert.Len(t, claimed, 2)
		for _, e := range claimed {
			assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
		}

		again, err := repo.MarkProcessing(ctx, []uuid.UUID{entries[0].ID}, testNow)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("failed entries become retryable after their backoff", func(t *testing.T) {
		e, err := repo.FindByID(ctx, entries[0].ID)
		require.NoError(t, err)
		e.MarkFailed("timeout", testNow)
		require.NoError(t, repo.Update(ctx, e))

		none, err := repo.FindRetryable(ctx, testNow, 10)
		require.NoError(t, err)
		assert.Empty(t, none)

		due, err := repo.FindRetryable(ctx, testNow.Add(time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "timeout", due[0].LastError)
		assert.Equal(t, 1, due[0].RetryCount)
	})

	t.Run("sent entries are cleaned up after retention", func(t *testing.T) {
		e, err := repo.FindByID(ctx, entries[1].ID)
		require.NoError(t, err)
		e.MarkSent(testNow)
		require.NoError(t, repo.Update(ctx, e))

		deleted, err := repo.DeleteSentBefore(ctx, testNow.Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, deleted)

		deleted, err = repo.DeleteSentBefore(ctx, testNow.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.FindByID(ctx, entries[1].ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("dead letters and counts", func(t *testing.T) {
		e, err := repo.FindByID(ctx, entries[2].ID)
		require.NoError(t, err)
		e.MaxRetries = 1
		e.MarkFailed("poison", testNow)
		require.True(t, e.IsDead())
		require.NoError(t, repo.Update(ctx, e))

		dead, total, err := repo.FindDead(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, dead, 1)
		assert.Equal(t, "poison", dead[0].LastError)

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[shared.OutboxStatus]int64{
			shared.OutboxStatusFailed: 1,
			shared.OutboxStatusDead:   1,
		}, counts)
	})
}
