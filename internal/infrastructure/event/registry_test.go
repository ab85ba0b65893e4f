package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	typed := &recordingHandler{}
	other := &recordingHandler{}
	wildcard := &recordingHandler{}

	r.Register(typed, "StockReserved", "StockReleased")
	r.Register(typed, "StockReserved")
	r.Register(other, "StockReleased")
	r.Register(wildcard)

	assert.Equal(t, []string{"StockReleased", "StockReserved"}, r.Subscriptions())
	assert.True(t, r.HasWildcard())

	t.Run("typed handlers come before wildcards, no duplicates", func(t *testing.T) {
		handlers := r.GetHandlers("StockReserved")
		assert.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
	})

	t.Run("unknown types still reach wildcards", func(t *testing.T) {
		handlers := r.GetHandlers("Nothing")
		assert.Len(t, handlers, 1)
	})

	t.Run("a handler registered both ways is called once", func(t *testing.T) {
		r.Register(wildcard, "StockReleased")
		assert.Len(t, r.GetHandlers("StockReleased"), 3)
		r.Unregister(wildcard)
		r.Register(wildcard)
	})

	t.Run("unregister removes empty types", func(t *testing.T) {
		r.Unregister(typed)
		assert.Equal(t, []string{"StockReleased"}, r.Subscriptions())
		assert.Len(t, r.GetHandlers("StockReserved"), 1)

		r.Unregister(wildcard)
		assert.False(t, r.HasWildcard())
	})
}
