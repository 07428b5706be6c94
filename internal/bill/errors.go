// Package bill holds the mutable building blocks of a settlement session:
// the receipt line items, the participant registry and the allocation table.
//
// None of the types here are safe for concurrent use. Cross-component
// invariants (clearing allocations when items are replaced, releasing a
// removed participant's claims) are enforced by the session controller that
// owns all three.
package bill

import "errors"

var (
	ErrItemNotFound         = errors.New("line item not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrInvalidParticipant   = errors.New("participant phone number is required")
	ErrDuplicateParticipant = errors.New("participant already added")
	ErrNoActiveParticipant  = errors.New("select a participant before claiming items")
	ErrItemHeld             = errors.New("line item is claimed by another participant")
)
