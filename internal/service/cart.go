package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/shopcart/internal/model"
)

// CartItem is a cart line joined with the product's current attributes.
type CartItem struct {
	CartID        uint            `json:"cart_id"`
	Quantity      int             `json:"quantity"`
	ProductID     uint            `json:"product_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"-"`
	PriceText     string          `json:"price" gorm:"-"`
	LineTotal     string          `json:"line_total" gorm:"-"`
	SellerID      uint            `json:"seller_id"`
	StockQuantity int             `json:"stock_quantity"`
	ImageData     []byte          `json:"-"`
	ImageType     string          `json:"image_type,omitempty"`
	ImageURL      string          `json:"imageUrl,omitempty" gorm:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CartService interface {
	Add(ctx context.Context, userID, productID uint) error
	List(ctx context.Context, userID uint) ([]CartItem, error)
	Remove(ctx context.Context, userID, cartID uint) error
	Clear(ctx context.Context, userID uint) error
}

type cartService struct{ db *gorm.DB }

func NewCartService(db *gorm.DB) CartService { return &cartService{db: db} }

func (s *cartService) Add(ctx context.Context, userID, productID uint) error {
	if userID == 0 {
		return invalid("userId", "is required")
	}
	if productID == 0 {
		return invalid("productId", "is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
			return storeErr("find product", err)
		}
		if n == 0 {
			return errors.Wrapf(ErrNotFound, "product %d", productID)
		}

		line := model.CartLine{UserID: userID, ProductID: productID, Quantity: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("cart.quantity + 1"),
			}),
		}).Create(&line).Error
		if err != nil && isForeignKeyViolation(err) {
			// product purged by a concurrent checkout, or the user is gone
			return errors.Wrapf(ErrNotFound, "product %d", productID)
		}
		return storeErr("upsert cart line", err)
	})
}

func (s *cartService) List(ctx context.Context, userID uint) ([]CartItem, error) {
	var items []CartItem
	err := s.db.WithContext(ctx).
		Table("cart AS c").
		Select(`c.id AS cart_id, c.quantity, c.created_at,
			p.id AS product_id, p.name, p.description, p.price, p.image_data, p.image_type,
			p.seller_id, p.quantity AS stock_quantity`).
		Joins("JOIN products p ON p.id = c.product_id").
		Where("c.user_id = ?", userID).
		Order("c.created_at DESC, c.id DESC").
		Scan(&items).Error
	if err != nil {
		return nil, storeErr("list cart", err)
	}
	for i := range items {
		it := &items[i]
		it.PriceText = model.FormatPrice(it.Price)
		it.LineTotal = model.FormatPrice(model.LineTotal(it.Price, it.Quantity))
		it.ImageURL = model.DataURI(it.ImageType, it.ImageData)
	}
	return items, nil
}

// Remove deletes one line, but only from the caller's own cart.
func (s *cartService) Remove(ctx context.Context, userID, cartID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", cartID, userID).Delete(&model.CartLine{})
	if res.Error != nil {
		return storeErr("remove cart line", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "cart line %d", cartID)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uint) error {
	return storeErr("clear cart", s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartLine{}).Error)
}
