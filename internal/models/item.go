package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineItem is one normalized line of an analyzed receipt.
type LineItem struct {
	// Name is the menu name printed on the receipt.
	Name string

	// UnitPrice is the price of a single unit.
	UnitPrice float64

	// Quantity is the currently selected quantity, never below 1.
	Quantity int

	// QuantityCap is the quantity detected on the receipt.
	// Zero means the quantity is unbounded.
	QuantityCap int
}

// Capped reports whether the item has a quantity cap.
func (li LineItem) Capped() bool {
	return li.QuantityCap > 0
}

// Total returns round(UnitPrice × Quantity) in whole currency units,
// saturating at the int64 range.
func (li LineItem) Total() int64 {
	qty := li.Quantity
	if qty < 1 {
		qty = 1
	}
	if math.IsNaN(li.UnitPrice) || math.IsInf(li.UnitPrice, 0) {
		return 0
	}
	total := decimal.NewFromFloat(li.UnitPrice).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(0)
	switch {
	case total.GreaterThan(maxTotal):
		return math.MaxInt64
	case total.LessThan(minTotal):
		return math.MinInt64
	}
	return total.IntPart()
}

var (
	maxTotal = decimal.NewFromInt(math.MaxInt64)
	minTotal = decimal.NewFromInt(math.MinInt64)
)

// RawItem is a receipt line as reported by the analysis endpoint.
type RawItem struct {
	Name      string `json:"name"`
	Price     Number `json:"price"`
	Quantity  Number `json:"quantity"`
	UnitPrice Number `json:"unit_price"`
}
