// Package service exposes settlement sessions over connect.
package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/dutchpay/internal/auth"
	"github.com/mmynk/dutchpay/internal/middleware"
	"github.com/mmynk/dutchpay/internal/models"
	"github.com/mmynk/dutchpay/internal/session"
	"github.com/mmynk/dutchpay/internal/share"
)

// SettlementService implements the settlement commands on top of a
// session.Manager.
type SettlementService struct {
	manager   *session.Manager
	tokens    *auth.TokenManager
	sender    share.Sender
	shareLink string
	onSend    func(error)
}

// ServiceOption configures a SettlementService.
type ServiceOption func(*SettlementService)

// WithSender enables SendShare through sender, attaching link to every message.
func WithSender(sender share.Sender, link string) ServiceOption {
	return func(s *SettlementService) {
		s.sender = sender
		s.shareLink = link
	}
}

// WithSendObserver reports the result of every SendShare delivery.
func WithSendObserver(fn func(error)) ServiceOption {
	return func(s *SettlementService) { s.onSend = fn }
}

// NewSettlementService creates a service backed by manager that issues
// session tokens with tokens.
func NewSettlementService(manager *session.Manager, tokens *auth.TokenManager, opts ...ServiceOption) *SettlementService {
	s := &SettlementService{manager: manager, tokens: tokens, onSend: func(error) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sessionID returns the session bound to the request token.
func sessionID(ctx context.Context) (string, error) {
	id := middleware.GetSessionID(ctx)
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return id, nil
}

// CreateSession starts a session and returns the token that grants access to it.
func (s *SettlementService) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	slog.Info("CreateSession request received")
	id, err := s.manager.Create(ctx)
	if err != nil {
		slog.Error("CreateSession failed", "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.tokens.Generate(id)
	if err != nil {
		slog.Error("CreateSession: failed to issue token", "session_id", id, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	view, err := s.manager.View(ctx, id, "")
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&CreateSessionResponse{
		SessionID: id,
		Token:     token,
		Session:   toSessionView(view),
	}), nil
}

// GetSession returns the session as seen by the requested active participant.
func (s *SettlementService) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error) {
	id, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("GetSession request received", "session_id", id, "has_active", req.Msg.Active != "")
	return s.respond(ctx, id, req.Msg.Active)
}

// AddParticipant registers a participant by phone number.
func (s *SettlementService) AddParticipant(ctx context.Context, req *connect.Request[AddParticipantRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "AddParticipant", "", func(ss *session.Session) error {
		return ss.AddParticipant(req.Msg.Phone)
	})
}

// RemoveParticipant removes the participant at the given position and releases
// their claimed items.
func (s *SettlementService) RemoveParticipant(ctx context.Context, req *connect.Request[RemoveParticipantRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "RemoveParticipant", "", func(ss *session.Session) error {
		_, err := ss.RemoveParticipant(req.Msg.Index)
		if err == nil {
			slog.Debug("Participant removed", "session_id", ss.ID(), "index", req.Msg.Index)
		}
		return err
	})
}

// SetTotal sets the bill total entered by hand.
func (s *SettlementService) SetTotal(ctx context.Context, req *connect.Request[SetTotalRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "SetTotal", "", func(ss *session.Session) error {
		return ss.SetTotal(req.Msg.Amount)
	})
}

// SetQuantity clamps the requested quantity; the applied value is visible in
// the returned item row.
func (s *SettlementService) SetQuantity(ctx context.Context, req *connect.Request[SetQuantityRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "SetQuantity", "", func(ss *session.Session) error {
		_, err := ss.SetQuantity(req.Msg.Item, req.Msg.Quantity)
		return err
	})
}

// Claim assigns a line item to the active participant.
func (s *SettlementService) Claim(ctx context.Context, req *connect.Request[ClaimRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "Claim", req.Msg.Active, func(ss *session.Session) error {
		return ss.Claim(req.Msg.Item, req.Msg.Active)
	})
}

// Unclaim releases a line item held by the active participant.
func (s *SettlementService) Unclaim(ctx context.Context, req *connect.Request[ClaimRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "Unclaim", req.Msg.Active, func(ss *session.Session) error {
		return ss.Unclaim(req.Msg.Item, req.Msg.Active)
	})
}

// SetMode switches between equal split and itemized settlement.
func (s *SettlementService) SetMode(ctx context.Context, req *connect.Request[SetModeRequest]) (*connect.Response[SessionResponse], error) {
	return s.command(ctx, "SetMode", "", func(ss *session.Session) error {
		return ss.SetMode(models.Mode(req.Msg.Mode))
	})
}

// AnalyzeReceipt sends the uploaded image for analysis and replaces the
// session's line items with the result. It blocks until the analysis ends.
func (s *SettlementService) AnalyzeReceipt(ctx context.Context, req *connect.Request[AnalyzeReceiptRequest]) (*connect.Response[SessionResponse], error) {
	id, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("AnalyzeReceipt request received",
		"session_id", id,
		"filename", req.Msg.Filename,
		"bytes", len(req.Msg.Image),
	)

	if err := s.manager.Analyze(ctx, id, req.Msg.Image, req.Msg.Filename); err != nil {
		slog.Warn("AnalyzeReceipt failed", "session_id", id, "error", err)
		return nil, toConnectError(err)
	}
	return s.respond(ctx, id, "")
}

// DeleteSession ends the token's session and removes it from storage.
func (s *SettlementService) DeleteSession(ctx context.Context, req *connect.Request[DeleteSessionRequest]) (*connect.Response[DeleteSessionResponse], error) {
	id, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteSession request received", "session_id", id)

	if err := s.manager.Delete(ctx, id); err != nil {
		if codeOf(err) == connect.CodeInternal {
			slog.Error("DeleteSession failed", "session_id", id, "error", err)
		}
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteSessionResponse{}), nil
}

// ShareMessage renders the settlement request text.
func (s *SettlementService) ShareMessage(ctx context.Context, req *connect.Request[ShareMessageRequest]) (*connect.Response[ShareMessageResponse], error) {
	id, text, err := s.share(ctx)
	if err != nil {
		return nil, err
	}
	return s.shareResponse(ctx, id, text)
}

// SendShare renders the settlement request text and delivers it through the
// configured messaging provider.
func (s *SettlementService) SendShare(ctx context.Context, req *connect.Request[ShareMessageRequest]) (*connect.Response[ShareMessageResponse], error) {
	if s.sender == nil {
		return nil, toConnectError(errSharingDisabled)
	}

	id, text, err := s.share(ctx)
	if err != nil {
		return nil, err
	}

	err = s.sender.Send(ctx, share.Message{Text: text, Link: s.shareLink})
	s.onSend(err)
	if err != nil {
		slog.Error("SendShare: delivery failed", "session_id", id, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	slog.Info("Share message sent", "session_id", id)
	return s.shareResponse(ctx, id, text)
}

func (s *SettlementService) share(ctx context.Context) (string, string, error) {
	id, err := sessionID(ctx)
	if err != nil {
		return "", "", err
	}
	slog.Info("Share request received", "session_id", id)
	var text string
	err = s.manager.Do(ctx, id, func(ss *session.Session) error {
		msg, err := ss.Share()
		text = msg
		return err
	})
	if err != nil {
		return "", "", toConnectError(err)
	}
	return id, text, nil
}

func (s *SettlementService) shareResponse(ctx context.Context, id, text string) (*connect.Response[ShareMessageResponse], error) {
	view, err := s.manager.View(ctx, id, "")
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ShareMessageResponse{
		Text:    text,
		Link:    s.shareLink,
		Session: toSessionView(view),
	}), nil
}

// command applies fn to the token's session and returns the updated view for
// active. name labels the log lines.
func (s *SettlementService) command(ctx context.Context, name, active string, fn func(*session.Session) error) (*connect.Response[SessionResponse], error) {
	id, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info(name+" request received", "session_id", id, "has_active", active != "")
	if err := s.manager.Do(ctx, id, fn); err != nil {
		if codeOf(err) == connect.CodeInternal {
			slog.Error(name+" failed", "session_id", id, "error", err)
		}
		return nil, toConnectError(err)
	}
	return s.respond(ctx, id, active)
}

func (s *SettlementService) respond(ctx context.Context, id, active string) (*connect.Response[SessionResponse], error) {
	view, err := s.manager.View(ctx, id, active)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			slog.Error("Failed to load session view", "session_id", id, "error", err)
		}
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SessionResponse{Session: toSessionView(view)}), nil
}
