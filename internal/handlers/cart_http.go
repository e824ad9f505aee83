package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"example.com/shopcart/internal/service"
)

type CartHTTP struct {
	S service.CartService
}

type addToCartReq struct {
	UserID    interface{} `json:"userId"`
	ProductID interface{} `json:"productId"`
}

func (h *CartHTTP) Add(c *gin.Context) {
	var req addToCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	uid, ok := resolveUser(c, req.UserID)
	if !ok {
		return
	}
	if req.ProductID == nil {
		badRequest(c, "productId is required")
		return
	}
	pid, err := cast.ToUintE(req.ProductID)
	if err != nil {
		badRequest(c, "productId must be a positive integer")
		return
	}
	if err := h.S.Add(c.Request.Context(), uid, pid); err != nil {
		fail(c, err)
		return
	}
	message(c, http.StatusOK, "Product added to cart")
}

func (h *CartHTTP) List(c *gin.Context) {
	uid, ok := resolveUser(c, c.Param("userId"))
	if !ok {
		return
	}
	items, err := h.S.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CartHTTP) Remove(c *gin.Context) {
	cartID, err := cast.ToUintE(c.Param("cartId"))
	if err != nil || cartID == 0 {
		badRequest(c, "cartId must be a positive integer")
		return
	}
	if err := h.S.Remove(c.Request.Context(), c.GetUint(ctxUserID), cartID); err != nil {
		fail(c, err)
		return
	}
	message(c, http.StatusOK, "Item removed from cart")
}
