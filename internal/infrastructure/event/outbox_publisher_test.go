package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_Entries(t *testing.T) {
	p := NewOutboxPublisher(testSerializer()).WithMaxRetries(3)
	p.now = func() time.Time { return testNow }
	scope := testScope()
	ev := newTestEvent(scope, "a")

	entries, err := p.Entries(ev)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, ev.EventID(), e.EventID)
	assert.Equal(t, scope.OrganizationID, e.OrganizationID)
	assert.Equal(t, 3, e.MaxRetries)
	assert.Equal(t, shared.OutboxStatusPending, e.Status)
	assert.True(t, testNow.Equal(e.CreatedAt))
	assert.Contains(t, string(e.Payload), `"note":"a"`)

	t.Run("unregistered events are refused", func(t *testing.T) {
		_, err := NewOutboxPublisher(NewEventSerializer()).Entries(ev)
		assert.Error(t, err)
	})

	t.Run("non-positive max retries keeps the default", func(t *testing.T) {
		entries, err := NewOutboxPublisher(testSerializer()).WithMaxRetries(0).Entries(ev)
		require.NoError(t, err)
		assert.Equal(t, shared.DefaultMaxRetries, entries[0].MaxRetries)
	})
}

func TestOutboxPublisher_WithTx(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewOutboxPublisher(testSerializer())
	scope := testScope()

	count := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.OutboxEntryModel{}).Where("organization_id = ?", scope.OrganizationID).Count(&n).Error)
		return n
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return p.WithTx(tx).SaveEvents(ctx, newTestEvent(scope, "1"), newTestEvent(scope, "2"))
	}))
	assert.Equal(t, int64(2), count())

	rollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, p.WithTx(tx).SaveEvents(ctx, newTestEvent(scope, "3")))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	assert.Equal(t, int64(2), count())

	assert.NoError(t, p.WithTx(db).SaveEvents(ctx))
}
