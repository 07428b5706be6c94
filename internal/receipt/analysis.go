// Package receipt talks to the external receipt analysis (OCR) endpoint and
// wraps it with upload validation, a result cache and an image archive.
package receipt

import (
	"errors"
	"fmt"

	"github.com/mmynk/dutchpay/internal/models"
)

var (
	ErrEmptyImage       = errors.New("receipt image is empty")
	ErrUnsupportedImage = errors.New("unsupported receipt image type")
	ErrRejected         = errors.New("receipt analysis rejected")
)

// Analysis is the analysis endpoint's response body.
type Analysis struct {
	TotalPrice models.Number    `json:"total_price"`
	Items      []models.RawItem `json:"items"`
	Error      string           `json:"error,omitempty"`
}

// Err returns the failure reported in the body, or nil.
func (a *Analysis) Err() error {
	if a.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRejected, a.Error)
}

// Total returns the detected bill total, 0 when absent or negative.
func (a *Analysis) Total() float64 {
	if a.TotalPrice.Valid && a.TotalPrice.Value > 0 {
		return a.TotalPrice.Value
	}
	return 0
}
