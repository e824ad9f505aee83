package model

import (
	"encoding/base64"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits kept for prices.
const PriceScale = 2

// LineTotal is price × qty rounded to cents. Display only; never persisted.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(PriceScale)
}

// FormatPrice renders a price with exactly two fractional digits.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(PriceScale)
}

// DataURI encodes an image payload for inline embedding. Empty when there
// is no payload.
func DataURI(mime string, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
