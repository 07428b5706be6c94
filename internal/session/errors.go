package session

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNegativeTotal     = errors.New("total amount must be a non-negative number")
	ErrNoTotal           = errors.New("enter the total amount first")
	ErrNoParticipants    = errors.New("add at least one participant first")
	ErrInvalidMode       = errors.New("unknown settlement mode")
	ErrInvalidTransition = errors.New("itemized settlement requires an analyzed receipt")
	ErrAnalysisInFlight  = errors.New("receipt analysis already in progress")
	ErrAnalysisFailed    = errors.New("receipt analysis failed")
)
