package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"example.com/shopcart/internal/service"
)

type stockDetail struct {
	ProductID   uint   `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	message(c, http.StatusBadRequest, msg)
}

// fail maps a service error to a status and a client message. Store
// failures are logged in full and reported generically.
func fail(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		se *service.StoreError
	)
	switch {
	case errors.As(err, &ve):
		badRequest(c, ve.Error())
	case errors.Is(err, service.ErrEmptyCart):
		badRequest(c, "Cart is empty")
	case errors.Is(err, service.ErrEmailTaken):
		message(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, service.ErrOrderIDConflict):
		message(c, http.StatusConflict, "Order id conflict, please retry")
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"message": "Insufficient stock",
			"details": stockDetails(err),
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		message(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrNotFound):
		message(c, http.StatusNotFound, "Not found")
	default:
		fields := []zap.Field{zap.String("path", c.FullPath()), zap.Error(err)}
		if errors.As(err, &se) {
			fields = append(fields, zap.String("op", se.Op))
		}
		zap.L().Error("request failed", fields...)
		message(c, http.StatusInternalServerError, "Internal server error")
	}
}

func stockDetails(err error) []stockDetail {
	var out []stockDetail
	for _, e := range multierr.Errors(err) {
		var se *service.StockError
		if errors.As(e, &se) && se.Err == nil {
			out = append(out, stockDetail{
				ProductID:   se.ProductID,
				ProductName: se.ProductName,
				Requested:   se.Requested,
				Available:   se.Available,
			})
		}
	}
	return out
}
