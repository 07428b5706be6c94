package session

import (
	"github.com/mmynk/dutchpay/internal/calculator"
	"github.com/mmynk/dutchpay/internal/models"
	"github.com/mmynk/dutchpay/internal/share"
)

// View is the display state of a session for one active participant.
type View struct {
	ID               string
	Phase            models.Phase
	Mode             models.Mode
	Total            float64
	TotalDisplay     string
	PerPerson        int64
	AnalysisInFlight bool
	Participants     []ParticipantView
	Items            []ItemView
	Reconciliation   calculator.Reconciliation
}

// ParticipantView is one participant's row.
type ParticipantView struct {
	ID            string
	Amount        int64
	AmountDisplay string
	ClaimedItems  int
}

// ItemView is one line item's row as seen by the active participant.
type ItemView struct {
	Index        int
	Name         string
	UnitPrice    float64
	Quantity     int
	QuantityCap  int
	Total        int64
	TotalDisplay string
	Holder       string
	Checked      bool
	Disabled     bool
}

// View derives the display state for active, which may be empty when no
// participant is selected.
func (s *Session) View(active string) View {
	result := s.Settlement()

	claimed := make(map[string]int)
	for _, holder := range s.allocations.Snapshot() {
		claimed[holder]++
	}

	participants := s.participants.List()
	pv := make([]ParticipantView, len(participants))
	for i, p := range participants {
		amount := result.AmountFor(p)
		pv[i] = ParticipantView{
			ID:            p,
			Amount:        amount,
			AmountDisplay: share.Won(amount),
			ClaimedItems:  claimed[p],
		}
	}

	items := s.items.All()
	iv := make([]ItemView, len(items))
	for i, item := range items {
		holder, _ := s.allocations.HolderOf(i)
		box := s.allocations.View(i, active)
		iv[i] = ItemView{
			Index:        i,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			QuantityCap:  item.QuantityCap,
			Total:        item.Total(),
			TotalDisplay: share.Won(item.Total()),
			Holder:       holder,
			Checked:      box.Checked,
			Disabled:     box.Disabled,
		}
	}

	return View{
		ID:               s.id,
		Phase:            s.phase,
		Mode:             s.mode,
		Total:            s.total,
		TotalDisplay:     share.Amount(s.total),
		PerPerson:        result.PerPerson,
		AnalysisInFlight: s.inFlight,
		Participants:     pv,
		Items:            iv,
		Reconciliation:   s.Reconciliation(),
	}
}
