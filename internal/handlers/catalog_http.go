package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"example.com/shopcart/internal/service"
)

const maxImageBytes = 10 << 20

type CatalogHTTP struct {
	S service.CatalogService
}

func (h *CatalogHTTP) List(c *gin.Context) {
	products, err := h.S.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Add creates a product from a multipart form with an image file.
func (h *CatalogHTTP) Add(c *gin.Context) {
	sellerID, ok := resolveUser(c, c.PostForm("userId"))
	if !ok {
		return
	}
	for _, f := range []string{"name", "description", "price"} {
		if strings.TrimSpace(c.PostForm(f)) == "" {
			badRequest(c, "All fields are required")
			return
		}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		badRequest(c, "price must be a number")
		return
	}
	qty := 1
	if raw := strings.TrimSpace(c.PostForm("quantity")); raw != "" {
		if qty, err = cast.ToIntE(raw); err != nil {
			badRequest(c, "quantity must be an integer")
			return
		}
	}

	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Image is required")
		return
	}
	if fh.Size > maxImageBytes {
		badRequest(c, "Image must be at most 10MB")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable image")
		return
	}
	defer f.Close()
	img, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		badRequest(c, "Unreadable image")
		return
	}
	if len(img) > maxImageBytes {
		badRequest(c, "Image must be at most 10MB")
		return
	}

	p, err := h.S.Create(c.Request.Context(), service.NewProduct{
		SellerID:    sellerID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Quantity:    qty,
		Image:       img,
		ImageType:   fh.Header.Get("Content-Type"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product added successfully", "productId": p.ID})
}
