package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shopcart/internal/service"
)

type CheckoutHTTP struct {
	S service.CheckoutService
}

type checkoutReq struct {
	UserID    interface{} `json:"userId"`
	BuyerName string      `json:"buyerName"`
}

func (h *CheckoutHTTP) Checkout(c *gin.Context) {
	var req checkoutReq
	// an empty body is fine: everything defaults to the session user
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}
	uid, ok := resolveUser(c, req.UserID)
	if !ok {
		return
	}
	r, err := h.S.Checkout(c.Request.Context(), uid, req.BuyerName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order placed successfully", "orderId": r.OrderID})
}
