package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plantshop-checkout/internal/cart"
	"github.com/example/plantshop-checkout/internal/coupon"
	"github.com/example/plantshop-checkout/internal/session"
)

func storedSession() *Session {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		ID:   "sess-1",
		User: session.Context{UserID: "user-123", Email: "user@example.com"},
		Step: StepShipping,
		Items: []cart.LineItem{
			{ProductID: "p1", Name: "Tulsi", UnitPrice: 100, Quantity: 2, Stock: 5},
		},
		Coupon: &coupon.Applied{
			Coupon:   coupon.Coupon{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, DiscountValue: 10},
			Discount: 20,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	sess := storedSession()

	require.NoError(t, store.Save(context.Background(), sess))

	loaded, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess, loaded)
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), storedSession()))

	require.NoError(t, store.Delete(context.Background(), "sess-1"))

	_, err := store.Get(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(context.Background(), "sess-1"))
}

func TestMemoryStore_NoAliasing(t *testing.T) {
	store := NewMemoryStore()
	sess := storedSession()
	require.NoError(t, store.Save(context.Background(), sess))

	// Mutating the caller's copy after Save must not leak into the store.
	sess.Step = StepConfirmed
	sess.Items[0].Quantity = 99
	sess.Coupon.Discount = 0

	loaded, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, StepShipping, loaded.Step)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	assert.Equal(t, 20.0, loaded.Coupon.Discount)

	// And mutating a loaded copy must not affect later reads.
	loaded.Items[0].Quantity = 42
	again, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}
