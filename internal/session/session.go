// Package session owns the state of a settlement session and serializes the
// commands applied to it.
//
// A Session is the single-threaded controller: every command fully applies
// before the next one and leaves the state unchanged when it fails. The
// Manager makes sessions safe to share between concurrent requests and
// persists them.
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/mmynk/dutchpay/internal/bill"
	"github.com/mmynk/dutchpay/internal/calculator"
	"github.com/mmynk/dutchpay/internal/models"
	"github.com/mmynk/dutchpay/internal/receipt"
	"github.com/mmynk/dutchpay/internal/share"
)

// Session is one settlement session. It is not safe for concurrent use.
type Session struct {
	id        string
	createdAt int64
	updatedAt int64

	phase       models.Phase
	resumePhase models.Phase // restored when an analysis fails
	inFlight    bool

	mode  models.Mode
	total float64

	items        bill.Items
	participants bill.Registry
	allocations  bill.Allocations
}

// New creates an empty session in the Idle phase.
func New(id string) *Session {
	now := time.Now().Unix()
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		phase:     models.PhaseIdle,
		mode:      models.ModeEqualSplit,
	}
}

// FromSnapshot rebuilds a session from persisted state. Allocations that
// refer to missing items or participants are dropped.
func FromSnapshot(snap *models.Session) *Session {
	s := &Session{
		id:        snap.ID,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
		phase:     snap.Phase,
		mode:      snap.Mode,
		total:     snap.Total,
	}
	if s.phase == "" || s.phase == models.PhaseReceiptUploaded {
		// An analysis interrupted by a restart never completed.
		s.phase = models.PhaseIdle
		if len(snap.Items) > 0 {
			s.phase = models.PhaseAnalyzed
		}
	}
	if !s.mode.Valid() {
		s.mode = models.ModeEqualSplit
	}
	s.items.Restore(snap.Items)
	s.participants.Restore(snap.Participants)

	valid := make(map[int]string, len(snap.Allocations))
	for item, holder := range snap.Allocations {
		if s.items.Has(item) && s.participants.Contains(holder) {
			valid[item] = holder
		}
	}
	s.allocations.Restore(valid)
	return s
}

// Snapshot returns a copy of the persisted state.
func (s *Session) Snapshot() *models.Session {
	return &models.Session{
		ID:           s.id,
		Phase:        s.phase,
		Mode:         s.mode,
		Total:        s.total,
		Participants: s.participants.List(),
		Items:        s.items.All(),
		Allocations:  s.allocations.Snapshot(),
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() models.Phase { return s.phase }

// Mode returns the current settlement mode.
func (s *Session) Mode() models.Mode { return s.mode }

// Total returns the bill total.
func (s *Session) Total() float64 { return s.total }

// AnalysisInFlight reports whether a receipt analysis is outstanding.
func (s *Session) AnalysisInFlight() bool { return s.inFlight }

func (s *Session) touch() {
	s.updatedAt = time.Now().Unix()
}

// AddParticipant registers a phone number.
func (s *Session) AddParticipant(id string) error {
	if err := s.participants.Add(id); err != nil {
		return err
	}
	s.touch()
	return nil
}

// RemoveParticipant removes the participant at index and releases every item
// it had claimed.
func (s *Session) RemoveParticipant(index int) (string, error) {
	id, err := s.participants.Remove(index)
	if err != nil {
		return "", err
	}
	s.allocations.Release(id)
	s.touch()
	return id, nil
}

// SetTotal sets the bill total.
func (s *Session) SetTotal(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrNegativeTotal
	}
	s.total = amount
	s.touch()
	return nil
}

// SetQuantity changes the quantity of a line item and returns the applied,
// clamped value.
func (s *Session) SetQuantity(item, requested int) (int, error) {
	applied, err := s.items.SetQuantity(item, requested)
	if err != nil {
		return 0, err
	}
	s.allocating()
	s.touch()
	return applied, nil
}

// Claim assigns item to the active participant.
func (s *Session) Claim(item int, active string) error {
	if err := s.checkClaim(item, active); err != nil {
		return err
	}
	if err := s.allocations.Claim(item, active); err != nil {
		return err
	}
	s.allocating()
	s.touch()
	return nil
}

// Unclaim releases item if the active participant holds it.
func (s *Session) Unclaim(item int, active string) error {
	if err := s.checkClaim(item, active); err != nil {
		return err
	}
	if err := s.allocations.Unclaim(item, active); err != nil {
		return err
	}
	s.allocating()
	s.touch()
	return nil
}

func (s *Session) checkClaim(item int, active string) error {
	if active == "" {
		return bill.ErrNoActiveParticipant
	}
	if !s.items.Has(item) {
		return fmt.Errorf("%w: index %d", bill.ErrItemNotFound, item)
	}
	if !s.participants.Contains(active) {
		return fmt.Errorf("%w: %s", bill.ErrParticipantNotFound, active)
	}
	return nil
}

func (s *Session) allocating() {
	if s.phase == models.PhaseAnalyzed || s.phase == models.PhaseReadyToSend {
		s.phase = models.PhaseAllocating
	}
}

// SetMode switches the settlement mode. Allocations are kept either way.
func (s *Session) SetMode(mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if mode == models.ModeItemized && !s.settledPhase().AtLeast(models.PhaseAnalyzed) {
		return ErrInvalidTransition
	}
	s.mode = mode
	s.touch()
	return nil
}

// settledPhase is the phase ignoring an outstanding analysis.
func (s *Session) settledPhase() models.Phase {
	if s.inFlight {
		return s.resumePhase
	}
	return s.phase
}

// BeginAnalysis marks a receipt upload as submitted.
func (s *Session) BeginAnalysis() error {
	if s.inFlight {
		return ErrAnalysisInFlight
	}
	s.inFlight = true
	s.resumePhase = s.phase
	s.phase = models.PhaseReceiptUploaded
	return nil
}

// CompleteAnalysis commits a successful analysis: the line items are
// replaced, all allocations are cleared and the total is taken from the
// receipt. A result carrying an error is handled as a failure.
func (s *Session) CompleteAnalysis(result *receipt.Analysis) error {
	if result == nil {
		return s.FailAnalysis(fmt.Errorf("empty analysis result"))
	}
	if err := result.Err(); err != nil {
		return s.FailAnalysis(err)
	}
	s.items.Ingest(result.Items)
	s.allocations.Clear()
	s.total = result.Total()
	s.phase = models.PhaseAnalyzed
	s.inFlight = false
	s.touch()
	return nil
}

// FailAnalysis abandons the outstanding analysis, restoring the phase held
// before it began, and returns cause wrapped in ErrAnalysisFailed.
func (s *Session) FailAnalysis(cause error) error {
	if s.inFlight {
		s.phase = s.resumePhase
		s.inFlight = false
	}
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, cause)
}

// Settlement derives every participant's amount under the current mode.
func (s *Session) Settlement() calculator.Result {
	return calculator.Settle(s.mode, s.total, s.items.All(), s.allocations.Snapshot(), s.participants.List())
}

// Reconciliation reports the gap between claimed items and the total.
func (s *Session) Reconciliation() calculator.Reconciliation {
	return calculator.Reconcile(s.total, s.items.All(), s.allocations.Snapshot())
}

// Share renders the settlement request message and marks the session ready
// to send.
func (s *Session) Share() (string, error) {
	if s.total <= 0 {
		return "", ErrNoTotal
	}
	if s.participants.Count() == 0 {
		return "", ErrNoParticipants
	}

	result := s.Settlement()
	participants := s.participants.List()
	lines := make([]share.Line, len(participants))
	for i, p := range participants {
		lines[i] = share.Line{Participant: p, Amount: result.AmountFor(p)}
	}
	msg := share.Format(s.mode, s.total, lines, result.PerPerson, s.allocations.Len() > 0)

	if s.phase.AtLeast(models.PhaseAnalyzed) {
		s.phase = models.PhaseReadyToSend
		s.touch()
	}
	return msg, nil
}

// clone returns a deep copy, including the transient analysis state.
func (s *Session) clone() *Session {
	c := FromSnapshot(s.Snapshot())
	c.phase = s.phase
	c.resumePhase = s.resumePhase
	c.inFlight = s.inFlight
	return c
}
