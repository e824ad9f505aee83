package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"example.com/shopcart/internal/model"
	"example.com/shopcart/internal/service"
)

type OrdersHTTP struct {
	S service.OrderService
}

func (h *OrdersHTTP) Get(c *gin.Context) {
	lines, err := h.S.Get(c.Request.Context(), c.GetUint(ctxUserID), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(model.LineTotal(l.Price, l.Quantity))
	}
	c.JSON(http.StatusOK, gin.H{
		"orderId": c.Param("orderId"),
		"lines":   lines,
		"total":   model.FormatPrice(total),
	})
}

func (h *OrdersHTTP) List(c *gin.Context) {
	orders, err := h.S.ListByBuyer(c.Request.Context(), c.GetUint(ctxUserID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type orderCSVRow struct {
	OrderID    string `csv:"order_id"`
	PlacedAt   string `csv:"placed_at"`
	Product    string `csv:"product"`
	SellerName string `csv:"seller"`
	Price      string `csv:"unit_price"`
	Quantity   int    `csv:"quantity"`
	LineTotal  string `csv:"line_total"`
}

// Export streams the caller's purchase history as CSV, one row per line.
func (h *OrdersHTTP) Export(c *gin.Context) {
	lines, err := h.S.History(c.Request.Context(), c.GetUint(ctxUserID))
	if err != nil {
		fail(c, err)
		return
	}
	rows := make([]orderCSVRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, orderCSVRow{
			OrderID:    l.OrderID,
			PlacedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
			Product:    l.ProductName,
			SellerName: l.SellerName,
			Price:      model.FormatPrice(l.Price),
			Quantity:   l.Quantity,
			LineTotal:  model.FormatPrice(model.LineTotal(l.Price, l.Quantity)),
		})
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
