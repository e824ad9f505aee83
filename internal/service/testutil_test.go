package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/shopcart/internal/model"
	"example.com/shopcart/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(store.Config{
		Driver:       "sqlite",
		DSN:          "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() { store.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) model.User {
	t.Helper()
	u := model.User{Username: name, Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uint, name, price string, qty int) model.Product {
	t.Helper()
	p := model.Product{
		SellerID:    sellerID,
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedCartLine(t *testing.T, db *gorm.DB, userID, productID uint, qty int) model.CartLine {
	t.Helper()
	l := model.CartLine{UserID: userID, ProductID: productID, Quantity: qty}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func stockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var p model.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Quantity
}

// fixedIDs always hands out the same order id.
type fixedIDs string

func (f fixedIDs) Next() string { return string(f) }

type countingIDs struct {
	mu sync.Mutex
	n  int
}

func (c *countingIDs) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("ORD-T%d", c.n)
}

// recordingCache follows the redis cache contract: a listing is stored only
// under the generation it was read at.
type recordingCache struct {
	mu          sync.Mutex
	stored      []ProductView
	has         bool
	gen         int64
	sets        int
	invalidates int
	// beforeSet runs ahead of each store, outside the lock.
	beforeSet func()
}

func (c *recordingCache) GetProducts(context.Context) ([]ProductView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stored, c.has, nil
}

func (c *recordingCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *recordingCache) SetProducts(_ context.Context, gen int64, p []ProductView) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.stored, c.has = p, true
	c.sets++
	return nil
}

func (c *recordingCache) InvalidateProducts(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored, c.has = nil, false
	c.gen++
	c.invalidates++
	return nil
}

type sentMail struct{ to, subject, body string }

type recordingEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (e *recordingEmail) Send(to, subject, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentMail{to, subject, body})
	return nil
}
