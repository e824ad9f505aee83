package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_GetAndList(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	other := seedUser(t, db, "Otto", "otto@example.com")
	a := seedProduct(t, db, seller.ID, "A", "2.00", 10)
	b := seedProduct(t, db, seller.ID, "B", "3.50", 10)
	ctx := context.Background()
	checkout := NewCheckoutService(db, CheckoutDeps{IDs: &countingIDs{}})

	seedCartLine(t, db, buyer.ID, a.ID, 2)
	seedCartLine(t, db, buyer.ID, b.ID, 1)
	first, err := checkout.Checkout(ctx, buyer.ID, "Bea")
	require.NoError(t, err)

	seedCartLine(t, db, buyer.ID, b.ID, 3)
	second, err := checkout.Checkout(ctx, buyer.ID, "Bea")
	require.NoError(t, err)

	orders := NewOrderService(db)

	lines, err := orders.Get(ctx, buyer.ID, first.OrderID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].ProductName)
	assert.Equal(t, "B", lines[1].ProductName)

	_, err = orders.Get(ctx, other.ID, first.OrderID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = orders.Get(ctx, buyer.ID, "ORD-missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	summaries, err := orders.ListByBuyer(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.OrderID, summaries[0].OrderID)
	assert.Equal(t, 1, summaries[0].Lines)
	assert.Equal(t, 3, summaries[0].Items)
	assert.Equal(t, "10.50", summaries[0].Total)
	assert.Equal(t, first.OrderID, summaries[1].OrderID)
	assert.Equal(t, 2, summaries[1].Lines)
	assert.Equal(t, "7.50", summaries[1].Total)

	none, err := orders.ListByBuyer(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
