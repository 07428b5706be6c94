// Package share renders settlement amounts for display and builds the
// settlement request message handed to a messaging collaborator.
package share

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySuffix is appended to every displayed amount.
const CurrencySuffix = "원"

var displayLanguage = language.Korean

// Won formats a whole amount with grouped thousands, e.g. "10,000원".
func Won(amount int64) string {
	return message.NewPrinter(displayLanguage).Sprintf("%d", amount) + CurrencySuffix
}

// Amount formats a possibly fractional amount the same way as Won, keeping up
// to three fraction digits.
func Amount(amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < math.MaxInt64 {
		return Won(int64(amount))
	}
	p := message.NewPrinter(displayLanguage)
	return p.Sprint(number.Decimal(amount, number.MaxFractionDigits(3))) + CurrencySuffix
}
