package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/dutchpay/internal/models"
)

// Result is the derived settlement of a session in one mode.
type Result struct {
	Mode models.Mode

	// PerPerson is the equal split amount. It is computed in both modes so the
	// share message can fall back to it.
	PerPerson int64

	// Itemized holds every registered participant's itemized total.
	Itemized map[string]int64
}

// AmountFor returns what participant owes under the result's mode.
func (r Result) AmountFor(participant string) int64 {
	if r.Mode == models.ModeItemized {
		return r.Itemized[participant]
	}
	return r.PerPerson
}

// Reconciliation compares itemized sums against the bill total.
// It is informational; no command is rejected because of a gap.
type Reconciliation struct {
	Total       float64
	Itemized    int64 // sum of claimed line totals
	Unallocated int64 // sum of unclaimed line totals
	Gap         float64
}

// Balanced reports whether claimed line totals add up to the bill total.
func (r Reconciliation) Balanced() bool {
	return r.Gap == 0
}

// EqualSplit divides total evenly among count participants, always rounding
// up so the collected sum never falls short of total.
func EqualSplit(total float64, count int) int64 {
	if count <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return decimal.NewFromFloat(total).
		Div(decimal.NewFromInt(int64(count))).
		Ceil().
		IntPart()
}

// ItemizedTotals attributes each allocated line item's total to its holder.
// Every registered participant is present in the result, starting at 0.
// Unallocated items, and allocations to unregistered ids, count for nobody.
func ItemizedTotals(items []models.LineItem, allocations map[int]string, participants []string) map[string]int64 {
	totals := make(map[string]int64, len(participants))
	for _, p := range participants {
		totals[p] = 0
	}

	for index, holder := range allocations {
		if index < 0 || index >= len(items) {
			continue
		}
		if _, exists := totals[holder]; exists {
			totals[holder] += items[index].Total()
		}
	}
	return totals
}

// Settle derives the per-participant amounts for mode.
func Settle(mode models.Mode, total float64, items []models.LineItem, allocations map[int]string, participants []string) Result {
	return Result{
		Mode:      mode,
		PerPerson: EqualSplit(total, len(participants)),
		Itemized:  ItemizedTotals(items, allocations, participants),
	}
}

// Reconcile reports how far claimed line totals are from total.
func Reconcile(total float64, items []models.LineItem, allocations map[int]string) Reconciliation {
	r := Reconciliation{Total: total}
	for i, item := range items {
		if _, claimed := allocations[i]; claimed {
			r.Itemized += item.Total()
		} else {
			r.Unallocated += item.Total()
		}
	}
	gap, _ := decimal.NewFromFloat(total).Sub(decimal.NewFromInt(r.Itemized)).Float64()
	r.Gap = gap
	return r
}
