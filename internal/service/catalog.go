package service

import (
	"context"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"example.com/shopcart/internal/model"
)

type NewProduct struct {
	SellerID    uint
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Image       []byte
	ImageType   string
}

// ProductView is a product as served to clients, with the image inlined.
type ProductView struct {
	ID          uint      `json:"id"`
	SellerID    uint      `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	ImageType   string    `json:"image_type,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProductView(p model.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       model.FormatPrice(p.Price),
		Quantity:    p.Quantity,
		ImageType:   p.ImageType,
		ImageURL:    model.DataURI(p.ImageType, p.ImageData),
		CreatedAt:   p.CreatedAt,
	}
}

type CatalogService interface {
	Create(ctx context.Context, in NewProduct) (model.Product, error)
	List(ctx context.Context) ([]ProductView, error)
	PurgeExhausted(ctx context.Context) (int, error)
}

type catalogService struct {
	db    *gorm.DB
	cache ProductCache
}

func NewCatalogService(db *gorm.DB, cache ProductCache) CatalogService {
	if cache == nil {
		cache = NoopProductCache()
	}
	return &catalogService{db: db, cache: cache}
}

func (s *catalogService) Create(ctx context.Context, in NewProduct) (model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.SellerID == 0:
		return model.Product{}, invalid("userId", "is required")
	case in.Name == "":
		return model.Product{}, invalid("name", "is required")
	case in.Description == "":
		return model.Product{}, invalid("description", "is required")
	case in.Price.IsNegative():
		return model.Product{}, invalid("price", "must not be negative")
	case in.Quantity < 0:
		return model.Product{}, invalid("quantity", "must not be negative")
	}

	var sellers int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", in.SellerID).Count(&sellers).Error; err != nil {
		return model.Product{}, storeErr("find seller", err)
	}
	if sellers == 0 {
		return model.Product{}, errors.Wrapf(ErrNotFound, "seller %d", in.SellerID)
	}

	p := model.Product{
		SellerID:    in.SellerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(model.PriceScale),
		Quantity:    in.Quantity,
	}
	if len(in.Image) > 0 {
		p.ImageData = in.Image
		p.ImageType = imageType(in.ImageType, in.Image)
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, storeErr("create product", err)
	}
	s.invalidate(ctx)
	zap.L().Info("product created",
		zap.Uint("product_id", p.ID),
		zap.Uint("seller_id", p.SellerID),
		zap.Int("quantity", p.Quantity))
	return p, nil
}

// imageType keeps a specific declared MIME type and sniffs the payload
// otherwise.
func imageType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func (s *catalogService) List(ctx context.Context) ([]ProductView, error) {
	if cached, ok, err := s.cache.GetProducts(ctx); err != nil {
		zap.L().Warn("product cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		zap.L().Warn("product cache generation read failed", zap.Error(genErr))
	}
	var rows []model.Product
	if err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, storeErr("list products", err)
	}
	out := make([]ProductView, 0, len(rows))
	for _, p := range rows {
		out = append(out, toProductView(p))
	}
	if genErr == nil {
		if err := s.cache.SetProducts(ctx, gen, out); err != nil {
			zap.L().Warn("product cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

func (s *catalogService) PurgeExhausted(ctx context.Context) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("quantity <= 0").Pluck("id", &ids).Error; err != nil {
			return storeErr("find exhausted products", err)
		}
		return purgeProducts(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.invalidate(ctx)
		zap.L().Info("purged exhausted products", zap.Uints("product_ids", ids))
	}
	return len(ids), nil
}

func (s *catalogService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		zap.L().Warn("product cache invalidation failed", zap.Error(err))
	}
}

// purgeProducts removes the products and, first, every cart line in any
// user's cart that references them.
func purgeProducts(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("product_id IN ?", ids).Delete(&model.CartLine{}).Error; err != nil {
		return storeErr("purge cart lines", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Product{}).Error; err != nil {
		return storeErr("delete products", err)
	}
	return nil
}
