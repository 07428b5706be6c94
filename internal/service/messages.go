package service

import (
	"github.com/mmynk/dutchpay/internal/session"
)

type CreateSessionRequest struct{}

type CreateSessionResponse struct {
	SessionID string      `json:"session_id"`
	Token     string      `json:"token"`
	Session   SessionView `json:"session"`
}

type GetSessionRequest struct {
	// Active is the participant whose checkbox view is derived. Optional.
	Active string `json:"active,omitempty"`
}

// SessionResponse is returned by every command that changes a session.
type SessionResponse struct {
	Session SessionView `json:"session"`
}

type AddParticipantRequest struct {
	Phone string `json:"phone"`
}

type RemoveParticipantRequest struct {
	Index int `json:"index"`
}

type SetTotalRequest struct {
	Amount float64 `json:"amount"`
}

type SetQuantityRequest struct {
	Item     int `json:"item"`
	Quantity int `json:"quantity"`
}

// ClaimRequest serves both Claim and Unclaim.
type ClaimRequest struct {
	Item   int    `json:"item"`
	Active string `json:"active"`
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}

type AnalyzeReceiptRequest struct {
	Image    []byte `json:"image"` // base64 in JSON
	Filename string `json:"filename"`
}

type DeleteSessionRequest struct{}

type DeleteSessionResponse struct{}

type ShareMessageRequest struct{}

type ShareMessageResponse struct {
	Text    string      `json:"text"`
	Link    string      `json:"link,omitempty"`
	Session SessionView `json:"session"`
}

type SessionView struct {
	ID               string            `json:"id"`
	Phase            string            `json:"phase"`
	Mode             string            `json:"mode"`
	Total            float64           `json:"total"`
	TotalDisplay     string            `json:"total_display"`
	PerPerson        int64             `json:"per_person"`
	AnalysisInFlight bool              `json:"analysis_in_flight"`
	Participants     []ParticipantView `json:"participants"`
	Items            []ItemView        `json:"items"`
	Reconciliation   Reconciliation    `json:"reconciliation"`
}

type ParticipantView struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
	ClaimedItems  int    `json:"claimed_items"`
}

type ItemView struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	QuantityCap  int     `json:"quantity_cap,omitempty"`
	Total        int64   `json:"total"`
	TotalDisplay string  `json:"total_display"`
	Holder       string  `json:"holder,omitempty"`
	Checked      bool    `json:"checked"`
	Disabled     bool    `json:"disabled"`
}

type Reconciliation struct {
	Itemized    int64   `json:"itemized"`
	Unallocated int64   `json:"unallocated"`
	Gap         float64 `json:"gap"`
	Balanced    bool    `json:"balanced"`
}

func toSessionView(v session.View) SessionView {
	participants := make([]ParticipantView, len(v.Participants))
	for i, p := range v.Participants {
		participants[i] = ParticipantView{
			ID:            p.ID,
			Amount:        p.Amount,
			AmountDisplay: p.AmountDisplay,
			ClaimedItems:  p.ClaimedItems,
		}
	}
	items := make([]ItemView, len(v.Items))
	for i, item := range v.Items {
		items[i] = ItemView{
			Index:        item.Index,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			QuantityCap:  item.QuantityCap,
			Total:        item.Total,
			TotalDisplay: item.TotalDisplay,
			Holder:       item.Holder,
			Checked:      item.Checked,
			Disabled:     item.Disabled,
		}
	}
	return SessionView{
		ID:               v.ID,
		Phase:            string(v.Phase),
		Mode:             string(v.Mode),
		Total:            v.Total,
		TotalDisplay:     v.TotalDisplay,
		PerPerson:        v.PerPerson,
		AnalysisInFlight: v.AnalysisInFlight,
		Participants:     participants,
		Items:            items,
		Reconciliation: Reconciliation{
			Itemized:    v.Reconciliation.Itemized,
			Unallocated: v.Reconciliation.Unallocated,
			Gap:         v.Reconciliation.Gap,
			Balanced:    v.Reconciliation.Balanced(),
		},
	}
}

// LogAttrs implementations feed middleware.LoggingInterceptor. Phone numbers
// are deliberately left out.

func (r *ClaimRequest) LogAttrs() []any {
	return []any{"item", r.Item, "has_active", r.Active != ""}
}

func (r *SetQuantityRequest) LogAttrs() []any {
	return []any{"item", r.Item, "quantity", r.Quantity}
}

func (r *SetModeRequest) LogAttrs() []any {
	return []any{"mode", r.Mode}
}

func (r *AnalyzeReceiptRequest) LogAttrs() []any {
	return []any{"filename", r.Filename, "image_bytes", len(r.Image)}
}

func (r *SessionResponse) LogAttrs() []any {
	return r.Session.logAttrs()
}

func (r *CreateSessionResponse) LogAttrs() []any {
	return []any{"created", r.SessionID}
}

func (r *ShareMessageResponse) LogAttrs() []any {
	return r.Session.logAttrs()
}

func (v SessionView) logAttrs() []any {
	return []any{
		"phase", v.Phase,
		"mode", v.Mode,
		"participants", len(v.Participants),
		"items", len(v.Items),
		"claimed", v.Reconciliation.Itemized,
		"unallocated", v.Reconciliation.Unallocated,
	}
}
