package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"example.com/shopcart/internal/model"
)

const unknownBuyer = "Unknown"

// Receipt is the outcome of a successful checkout.
type Receipt struct {
	OrderID    string
	BuyerID    uint
	BuyerName  string
	BuyerEmail string
	PlacedAt   time.Time
	Lines      []model.OrderDetail
}

func (r *Receipt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(model.LineTotal(l.Price, l.Quantity))
	}
	return total
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID uint, buyerName string) (*Receipt, error)
}

type checkoutService struct {
	db     *gorm.DB
	ids    OrderIDGenerator
	cache  ProductCache
	events EventPublisher
	email  EmailService
}

type CheckoutDeps struct {
	IDs    OrderIDGenerator
	Cache  ProductCache
	Events EventPublisher
	Email  EmailService
}

func NewCheckoutService(db *gorm.DB, deps CheckoutDeps) CheckoutService {
	s := &checkoutService{db: db, ids: deps.IDs, cache: deps.Cache, events: deps.Events, email: deps.Email}
	if s.cache == nil {
		s.cache = NoopProductCache()
	}
	if s.events == nil {
		s.events = NoopPublisher()
	}
	if s.email == nil {
		s.email = noopEmail{}
	}
	return s
}

// checkoutLine is one cart line joined with its product and seller.
type checkoutLine struct {
	CartID      uint
	ProductID   uint
	ProductName string
	Price       decimal.Decimal
	SellerID    uint
	SellerName  string
	Quantity    int
	Stock       int
}

// Checkout turns the user's cart into order detail rows in one transaction:
// record the order, take the stock, drop exhausted products from every
// cart, then empty the buyer's cart. Any line that cannot be covered by
// stock aborts the whole purchase.
func (s *checkoutService) Checkout(ctx context.Context, userID uint, buyerName string) (*Receipt, error) {
	if userID == 0 {
		return nil, invalid("userId", "is required")
	}

	r := &Receipt{BuyerID: userID, BuyerName: strings.TrimSpace(buyerName)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := loadCheckoutLines(tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		s.resolveBuyer(tx, r)

		r.OrderID = s.ids.Next()
		if r.OrderID == "" {
			return errors.New("order id generator returned an empty id")
		}
		var used int64
		if err := tx.Model(&model.OrderDetail{}).Where("order_id = ?", r.OrderID).Count(&used).Error; err != nil {
			return storeErr("check order id", err)
		}
		if used > 0 {
			return errors.Wrapf(ErrOrderIDConflict, "order id %s", r.OrderID)
		}

		r.PlacedAt = time.Now()
		r.Lines = make([]model.OrderDetail, 0, len(lines))
		for _, l := range lines {
			r.Lines = append(r.Lines, model.OrderDetail{
				OrderID:     r.OrderID,
				BuyerID:     userID,
				BuyerName:   r.BuyerName,
				SellerID:    l.SellerID,
				SellerName:  l.SellerName,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Price:       l.Price,
				Quantity:    l.Quantity,
				CreatedAt:   r.PlacedAt,
			})
		}
		if err := tx.Create(&r.Lines).Error; err != nil {
			return storeErr("insert order details", err)
		}

		if err := takeStock(tx, lines); err != nil {
			return err
		}

		productIDs := make([]uint, 0, len(lines))
		for _, l := range lines {
			productIDs = append(productIDs, l.ProductID)
		}
		var exhausted []uint
		if err := tx.Model(&model.Product{}).Where("id IN ? AND quantity <= 0", productIDs).Pluck("id", &exhausted).Error; err != nil {
			return storeErr("find exhausted products", err)
		}
		if err := purgeProducts(tx, exhausted); err != nil {
			return err
		}

		// by user id, not by the lines read above, so lines added while the
		// transaction ran are cleared too
		if err := tx.Where("user_id = ?", userID).Delete(&model.CartLine{}).Error; err != nil {
			return storeErr("clear cart", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("checkout completed",
		zap.String("order_id", r.OrderID),
		zap.Uint("buyer_id", userID),
		zap.Int("lines", len(r.Lines)),
		zap.String("total", model.FormatPrice(r.Total())))

	s.afterCommit(ctx, r)
	return r, nil
}

func (s *checkoutService) resolveBuyer(tx *gorm.DB, r *Receipt) {
	var buyer model.User
	if err := tx.Select("id", "username", "email").First(&buyer, r.BuyerID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Warn("load buyer", zap.Uint("buyer_id", r.BuyerID), zap.Error(err))
		}
	} else {
		r.BuyerEmail = buyer.Email
		if r.BuyerName == "" {
			r.BuyerName = buyer.Username
		}
	}
	if r.BuyerName == "" {
		r.BuyerName = unknownBuyer
	}
}

func loadCheckoutLines(tx *gorm.DB, userID uint) ([]checkoutLine, error) {
	var lines []checkoutLine
	err := tx.Table("cart AS c").
		Select(`c.id AS cart_id, c.product_id, p.name AS product_name, p.price,
			p.seller_id, u.username AS seller_name, c.quantity, p.quantity AS stock`).
		Joins("JOIN products p ON p.id = c.product_id").
		Joins("JOIN users u ON u.id = p.seller_id").
		Where("c.user_id = ?", userID).
		Order("c.id").
		Scan(&lines).Error
	if err != nil {
		return nil, storeErr("load cart", err)
	}
	return lines, nil
}

// takeStock decrements every line's product with a conditional update so
// stock can never go below zero. All lines are attempted; the failures come
// back together as one multierr of *StockError.
func takeStock(tx *gorm.DB, lines []checkoutLine) error {
	var errs error
	for _, l := range lines {
		res := tx.Model(&model.Product{}).
			Where("id = ? AND quantity >= ?", l.ProductID, l.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", l.Quantity))
		switch {
		case res.Error != nil:
			errs = multierr.Append(errs, &StockError{
				ProductID: l.ProductID, ProductName: l.ProductName,
				Requested: l.Quantity, Available: l.Stock, Err: res.Error,
			})
		case res.RowsAffected == 0:
			errs = multierr.Append(errs, &StockError{
				ProductID: l.ProductID, ProductName: l.ProductName,
				Requested: l.Quantity, Available: l.Stock,
			})
		}
	}
	if errs != nil {
		zap.L().Warn("stock adjustment failed, rolling back checkout", zap.Error(errs))
	}
	return errs
}

// afterCommit runs the side channels. None of them can undo or fail a
// committed order; problems are only logged.
func (s *checkoutService) afterCommit(ctx context.Context, r *Receipt) {
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		zap.L().Warn("product cache invalidation failed", zap.String("order_id", r.OrderID), zap.Error(err))
	}
	if err := s.events.PublishOrderPlaced(ctx, r); err != nil {
		zap.L().Error("publish order.placed failed", zap.String("order_id", r.OrderID), zap.Error(err))
	}
	if r.BuyerEmail != "" {
		body := fmt.Sprintf("Thanks %s! Your order %s (%d items, total %s) has been received.",
			r.BuyerName, r.OrderID, len(r.Lines), model.FormatPrice(r.Total()))
		if err := s.email.Send(r.BuyerEmail, "Order confirmation", body); err != nil {
			zap.L().Warn("order confirmation mail failed", zap.String("order_id", r.OrderID), zap.Error(err))
		}
	}
}
