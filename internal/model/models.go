package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:255;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password;size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SellerID    uint            `gorm:"index;not null" json:"seller_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageData   []byte          `json:"-"`
	ImageType   string          `gorm:"size:50" json:"image_type,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`

	Seller *User `gorm:"foreignKey:SellerID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Product) TableName() string { return "products" }

// CartLine is one (user, product) entry of a cart. The pair is unique;
// repeated adds bump Quantity instead of inserting a new row.
type CartLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (CartLine) TableName() string { return "cart" }

// OrderDetail is a write-once snapshot of one purchased line. Names and
// prices are copied at checkout and never follow later product changes.
type OrderDetail struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"size:64;index;not null" json:"order_id"`
	BuyerID     uint            `gorm:"index;not null" json:"buyer_id"`
	BuyerName   string          `gorm:"size:255" json:"buyer_name"`
	SellerID    uint            `gorm:"not null" json:"seller_id"`
	SellerName  string          `gorm:"size:255" json:"seller_name"`
	ProductID   uint            `gorm:"not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (OrderDetail) TableName() string { return "order_details" }
