package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/dutchpay/internal/auth"
	"github.com/mmynk/dutchpay/internal/bill"
	"github.com/mmynk/dutchpay/internal/receipt"
	"github.com/mmynk/dutchpay/internal/session"
)

var errSharingDisabled = errors.New("message sending is not configured")

// invalidArgument lists the errors caused by bad input. A command failing with
// one of these left the session unchanged.
var invalidArgument = []error{
	bill.ErrItemNotFound,
	bill.ErrParticipantNotFound,
	bill.ErrInvalidParticipant,
	bill.ErrDuplicateParticipant,
	bill.ErrNoActiveParticipant,
	bill.ErrItemHeld,
	session.ErrNegativeTotal,
	session.ErrNoTotal,
	session.ErrNoParticipants,
	session.ErrInvalidMode,
	receipt.ErrEmptyImage,
	receipt.ErrUnsupportedImage,
}

// codeOf classifies a domain error into a connect code.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return connect.CodeUnauthenticated
	case errors.Is(err, session.ErrSessionNotFound):
		return connect.CodeNotFound
	case errors.Is(err, session.ErrInvalidTransition):
		return connect.CodeFailedPrecondition
	case errors.Is(err, session.ErrAnalysisInFlight):
		return connect.CodeAborted
	case errors.Is(err, errSharingDisabled):
		return connect.CodeUnimplemented
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return connect.CodeInvalidArgument
		}
	}
	if errors.Is(err, session.ErrAnalysisFailed) {
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

// toConnectError wraps err with its connect code.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(codeOf(err), err)
}
