package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/shopcart/internal/model"
)

// OrderSummary groups the detail rows a buyer got from one checkout.
type OrderSummary struct {
	OrderID  string    `json:"order_id"`
	Lines    int       `json:"lines"`
	Items    int       `json:"items"`
	Total    string    `json:"total"`
	PlacedAt time.Time `json:"placed_at"`
}

type OrderService interface {
	Get(ctx context.Context, buyerID uint, orderID string) ([]model.OrderDetail, error)
	ListByBuyer(ctx context.Context, buyerID uint) ([]OrderSummary, error)
	History(ctx context.Context, buyerID uint) ([]model.OrderDetail, error)
}

type orderService struct{ db *gorm.DB }

func NewOrderService(db *gorm.DB) OrderService { return &orderService{db: db} }

// Get returns one order's lines. Orders of other buyers look the same as
// orders that do not exist.
func (s *orderService) Get(ctx context.Context, buyerID uint, orderID string) ([]model.OrderDetail, error) {
	var rows []model.OrderDetail
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND buyer_id = ?", orderID, buyerID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("load order", err)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "order %s", orderID)
	}
	return rows, nil
}

// History returns every line the buyer ever purchased, newest order first.
func (s *orderService) History(ctx context.Context, buyerID uint) ([]model.OrderDetail, error) {
	var rows []model.OrderDetail
	err := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at desc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return rows, nil
}

func (s *orderService) ListByBuyer(ctx context.Context, buyerID uint) ([]OrderSummary, error) {
	rows, err := s.History(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	out := []OrderSummary{}
	index := map[string]int{}
	totals := map[string]decimal.Decimal{}
	for _, r := range rows {
		i, ok := index[r.OrderID]
		if !ok {
			i = len(out)
			index[r.OrderID] = i
			out = append(out, OrderSummary{OrderID: r.OrderID, PlacedAt: r.CreatedAt})
		}
		out[i].Lines++
		out[i].Items += r.Quantity
		totals[r.OrderID] = totals[r.OrderID].Add(model.LineTotal(r.Price, r.Quantity))
	}
	for i := range out {
		out[i].Total = model.FormatPrice(totals[out[i].OrderID])
	}
	return out, nil
}
