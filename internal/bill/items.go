package bill

import (
	"fmt"
	"math"

	"github.com/mmynk/dutchpay/internal/models"
)

// maxDetectedQuantity bounds OCR quantities that are taken at face value.
const maxDetectedQuantity = math.MaxInt32

// MaxUnitPrice bounds the magnitude of a detected unit price. Larger values
// cannot be real menu prices and are read as 0.
const MaxUnitPrice = 1e12

// Items is the line item store of one session.
type Items struct {
	items []models.LineItem
}

// Normalize converts a raw analysis line into a LineItem.
//
// The detected quantity (truncated) becomes both the initial quantity and the
// cap when it is at least 1; otherwise the quantity is 1 and uncapped. The
// unit price is the detected unit price when positive, else price/quantity,
// else the raw price, else 0.
func Normalize(raw models.RawItem) models.LineItem {
	item := models.LineItem{Name: raw.Name, Quantity: 1}

	if raw.Quantity.Valid && raw.Quantity.Value >= 1 && raw.Quantity.Value < maxDetectedQuantity {
		item.Quantity = int(raw.Quantity.Value)
		item.QuantityCap = item.Quantity
	}

	unit := math.NaN()
	switch {
	case raw.UnitPrice.Positive():
		unit = raw.UnitPrice.Value
	case raw.Price.Valid:
		unit = raw.Price.Value / float64(item.Quantity)
	}
	if math.IsNaN(unit) || math.IsInf(unit, 0) || unit <= 0 {
		unit = 0
		if raw.Price.Valid {
			unit = raw.Price.Value
		}
	}
	if math.Abs(unit) > MaxUnitPrice {
		unit = 0
	}
	item.UnitPrice = unit
	return item
}

// Ingest replaces the whole set with the normalized raw items and returns a
// copy of the new set.
func (s *Items) Ingest(raw []models.RawItem) []models.LineItem {
	items := make([]models.LineItem, len(raw))
	for i, r := range raw {
		items[i] = Normalize(r)
	}
	s.items = items
	return s.All()
}

// Restore replaces the set with already normalized items.
func (s *Items) Restore(items []models.LineItem) {
	s.items = append([]models.LineItem(nil), items...)
}

// Len returns the number of line items.
func (s *Items) Len() int {
	return len(s.items)
}

// Has reports whether index refers to an existing line item.
func (s *Items) Has(index int) bool {
	return index >= 0 && index < len(s.items)
}

// Get returns the line item at index.
func (s *Items) Get(index int) (models.LineItem, error) {
	if !s.Has(index) {
		return models.LineItem{}, fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}
	return s.items[index], nil
}

// All returns a copy of the line items in receipt order.
func (s *Items) All() []models.LineItem {
	return append([]models.LineItem(nil), s.items...)
}

// SetQuantity clamps requested to [1, cap] (or [1, ∞) when uncapped), stores
// it and returns the applied quantity.
func (s *Items) SetQuantity(index, requested int) (int, error) {
	if !s.Has(index) {
		return 0, fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}
	item := &s.items[index]
	qty := max(1, requested)
	if item.Capped() {
		qty = min(qty, item.QuantityCap)
	}
	item.Quantity = qty
	return qty, nil
}

// Total returns the line total of the item at index.
func (s *Items) Total(index int) (int64, error) {
	item, err := s.Get(index)
	if err != nil {
		return 0, err
	}
	return item.Total(), nil
}
