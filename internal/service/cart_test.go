package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/shopcart/internal/model"
)

func TestCart_AddMergesRepeatedProduct(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	p := seedProduct(t, db, seller.ID, "Lamp", "10.00", 5)
	cart := NewCartService(db)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, buyer.ID, p.ID))
	require.NoError(t, cart.Add(ctx, buyer.ID, p.ID))
	require.NoError(t, cart.Add(ctx, buyer.ID, p.ID))

	var lines []model.CartLine
	require.NoError(t, db.Where("user_id = ?", buyer.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCart_AddValidation(t *testing.T) {
	db := newTestDB(t)
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	cart := NewCartService(db)
	ctx := context.Background()

	assert.True(t, IsValidation(cart.Add(ctx, 0, 1)))
	assert.True(t, IsValidation(cart.Add(ctx, buyer.ID, 0)))
	assert.True(t, errors.Is(cart.Add(ctx, buyer.ID, 12345), ErrNotFound))
	assert.Zero(t, countRows(t, db, &model.CartLine{}, ""))
}

func TestCart_AddRejectsDanglingReferences(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	p := seedProduct(t, db, seller.ID, "Lamp", "10.00", 5)
	cart := NewCartService(db)

	// the product exists, the user does not: the upsert hits the foreign key
	err := cart.Add(context.Background(), 4242, p.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, countRows(t, db, &model.CartLine{}, ""))

	err = db.Create(&model.CartLine{UserID: seller.ID, ProductID: 9999, Quantity: 1}).Error
	require.Error(t, err)
	assert.True(t, isForeignKeyViolation(err))
}

func TestCart_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	first := seedProduct(t, db, seller.ID, "First", "19.99", 5)
	second := seedProduct(t, db, seller.ID, "Second", "0.50", 2)
	require.NoError(t, db.Model(&model.Product{}).Where("id = ?", second.ID).
		Updates(map[string]interface{}{"image_data": []byte("png"), "image_type": "image/png"}).Error)

	cart := NewCartService(db)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, buyer.ID, first.ID))
	require.NoError(t, cart.Add(ctx, buyer.ID, first.ID))
	require.NoError(t, cart.Add(ctx, buyer.ID, second.ID))

	items, err := cart.List(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Second", items[0].Name)
	assert.Equal(t, "0.50", items[0].PriceText)
	assert.Equal(t, 2, items[0].StockQuantity)
	assert.Equal(t, "data:image/png;base64,cG5n", items[0].ImageURL)

	assert.Equal(t, "First", items[1].Name)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, "39.98", items[1].LineTotal)
	assert.Equal(t, seller.ID, items[1].SellerID)
	assert.Empty(t, items[1].ImageURL)

	empty, err := cart.List(ctx, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCart_RemoveIsOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	intruder := seedUser(t, db, "Ivy", "ivy@example.com")
	p := seedProduct(t, db, seller.ID, "Lamp", "10.00", 5)
	line := seedCartLine(t, db, buyer.ID, p.ID, 1)
	cart := NewCartService(db)
	ctx := context.Background()

	err := cart.Remove(ctx, intruder.ID, line.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, countRows(t, db, &model.CartLine{}, "id = ?", line.ID))

	require.NoError(t, cart.Remove(ctx, buyer.ID, line.ID))
	assert.Zero(t, countRows(t, db, &model.CartLine{}, "id = ?", line.ID))

	assert.True(t, errors.Is(cart.Remove(ctx, buyer.ID, line.ID), ErrNotFound))
}

func TestCart_Clear(t *testing.T) {
	db := newTestDB(t)
	seller := seedUser(t, db, "Sam", "sam@example.com")
	buyer := seedUser(t, db, "Bea", "bea@example.com")
	a := seedProduct(t, db, seller.ID, "A", "1.00", 5)
	b := seedProduct(t, db, seller.ID, "B", "1.00", 5)
	seedCartLine(t, db, buyer.ID, a.ID, 1)
	seedCartLine(t, db, buyer.ID, b.ID, 1)
	seedCartLine(t, db, seller.ID, a.ID, 1)

	require.NoError(t, NewCartService(db).Clear(context.Background(), buyer.ID))
	assert.Zero(t, countRows(t, db, &model.CartLine{}, "user_id = ?", buyer.ID))
	assert.EqualValues(t, 1, countRows(t, db, &model.CartLine{}, "user_id = ?", seller.ID))
}
