package models

// Mode selects how a session derives what each participant owes.
type Mode string

const (
	// ModeEqualSplit divides the total amount evenly, rounded up.
	ModeEqualSplit Mode = "EQUAL_SPLIT"
	// ModeItemized attributes each claimed line item to its claimant.
	ModeItemized Mode = "ITEMIZED"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeEqualSplit || m == ModeItemized
}

// Phase is the session-level progress through the settlement flow.
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseReceiptUploaded Phase = "RECEIPT_UPLOADED"
	PhaseAnalyzed        Phase = "ANALYZED"
	PhaseAllocating      Phase = "ALLOCATING"
	PhaseReadyToSend     Phase = "READY_TO_SEND"
)

// rank orders phases along the happy path.
func (p Phase) rank() int {
	switch p {
	case PhaseReceiptUploaded:
		return 1
	case PhaseAnalyzed:
		return 2
	case PhaseAllocating:
		return 3
	case PhaseReadyToSend:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether p is at or past other on the happy path.
func (p Phase) AtLeast(other Phase) bool {
	return p.rank() >= other.rank()
}

// Session is the persisted state of one settlement session.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// Phase is where the session is in the settlement flow.
	Phase Phase

	// Mode is the active settlement mode.
	Mode Mode

	// Total is the bill total, entered directly or taken from the receipt.
	Total float64

	// Participants are phone numbers in display order.
	Participants []string

	// Items are the line items of the last analyzed receipt.
	Items []LineItem

	// Allocations maps a line item index to the participant who claimed it.
	Allocations map[int]string

	// CreatedAt is the Unix timestamp when the session was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last persisted change.
	UpdatedAt int64
}
