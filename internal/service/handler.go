package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SettlementServiceName is the fully-qualified name of the settlement service.
const SettlementServiceName = "dutchpay.v1.SettlementService"

// Procedure paths served by NewSettlementServiceHandler.
const (
	CreateSessionProcedure     = "/" + SettlementServiceName + "/CreateSession"
	GetSessionProcedure        = "/" + SettlementServiceName + "/GetSession"
	AddParticipantProcedure    = "/" + SettlementServiceName + "/AddParticipant"
	RemoveParticipantProcedure = "/" + SettlementServiceName + "/RemoveParticipant"
	SetTotalProcedure          = "/" + SettlementServiceName + "/SetTotal"
	SetQuantityProcedure       = "/" + SettlementServiceName + "/SetQuantity"
	ClaimProcedure             = "/" + SettlementServiceName + "/Claim"
	UnclaimProcedure           = "/" + SettlementServiceName + "/Unclaim"
	SetModeProcedure           = "/" + SettlementServiceName + "/SetMode"
	AnalyzeReceiptProcedure    = "/" + SettlementServiceName + "/AnalyzeReceipt"
	ShareMessageProcedure      = "/" + SettlementServiceName + "/ShareMessage"
	SendShareProcedure         = "/" + SettlementServiceName + "/SendShare"
	DeleteSessionProcedure     = "/" + SettlementServiceName + "/DeleteSession"
)

// PublicProcedures need no session token.
var PublicProcedures = []string{CreateSessionProcedure}

// NewSettlementServiceHandler builds an HTTP handler for svc. It returns the
// path to mount the handler on.
func NewSettlementServiceHandler(svc *SettlementService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(AddParticipantProcedure, connect.NewUnaryHandler(AddParticipantProcedure, svc.AddParticipant, opts...))
	mux.Handle(RemoveParticipantProcedure, connect.NewUnaryHandler(RemoveParticipantProcedure, svc.RemoveParticipant, opts...))
	mux.Handle(SetTotalProcedure, connect.NewUnaryHandler(SetTotalProcedure, svc.SetTotal, opts...))
	mux.Handle(SetQuantityProcedure, connect.NewUnaryHandler(SetQuantityProcedure, svc.SetQuantity, opts...))
	mux.Handle(ClaimProcedure, connect.NewUnaryHandler(ClaimProcedure, svc.Claim, opts...))
	mux.Handle(UnclaimProcedure, connect.NewUnaryHandler(UnclaimProcedure, svc.Unclaim, opts...))
	mux.Handle(SetModeProcedure, connect.NewUnaryHandler(SetModeProcedure, svc.SetMode, opts...))
	mux.Handle(AnalyzeReceiptProcedure, connect.NewUnaryHandler(AnalyzeReceiptProcedure, svc.AnalyzeReceipt, opts...))
	mux.Handle(ShareMessageProcedure, connect.NewUnaryHandler(ShareMessageProcedure, svc.ShareMessage, opts...))
	mux.Handle(SendShareProcedure, connect.NewUnaryHandler(SendShareProcedure, svc.SendShare, opts...))
	mux.Handle(DeleteSessionProcedure, connect.NewUnaryHandler(DeleteSessionProcedure, svc.DeleteSession, opts...))
	return "/" + SettlementServiceName + "/", mux
}

// SettlementServiceClient calls the settlement service over connect.
type SettlementServiceClient struct {
	createSession     *connect.Client[CreateSessionRequest, CreateSessionResponse]
	getSession        *connect.Client[GetSessionRequest, SessionResponse]
	addParticipant    *connect.Client[AddParticipantRequest, SessionResponse]
	removeParticipant *connect.Client[RemoveParticipantRequest, SessionResponse]
	setTotal          *connect.Client[SetTotalRequest, SessionResponse]
	setQuantity       *connect.Client[SetQuantityRequest, SessionResponse]
	claim             *connect.Client[ClaimRequest, SessionResponse]
	unclaim           *connect.Client[ClaimRequest, SessionResponse]
	setMode           *connect.Client[SetModeRequest, SessionResponse]
	analyzeReceipt    *connect.Client[AnalyzeReceiptRequest, SessionResponse]
	shareMessage      *connect.Client[ShareMessageRequest, ShareMessageResponse]
	sendShare         *connect.Client[ShareMessageRequest, ShareMessageResponse]
	deleteSession     *connect.Client[DeleteSessionRequest, DeleteSessionResponse]
}

// NewSettlementServiceClient creates a client for the service at baseURL.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &SettlementServiceClient{
		createSession:     connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+CreateSessionProcedure, opts...),
		getSession:        connect.NewClient[GetSessionRequest, SessionResponse](httpClient, baseURL+GetSessionProcedure, opts...),
		addParticipant:    connect.NewClient[AddParticipantRequest, SessionResponse](httpClient, baseURL+AddParticipantProcedure, opts...),
		removeParticipant: connect.NewClient[RemoveParticipantRequest, SessionResponse](httpClient, baseURL+RemoveParticipantProcedure, opts...),
		setTotal:          connect.NewClient[SetTotalRequest, SessionResponse](httpClient, baseURL+SetTotalProcedure, opts...),
		setQuantity:       connect.NewClient[SetQuantityRequest, SessionResponse](httpClient, baseURL+SetQuantityProcedure, opts...),
		claim:             connect.NewClient[ClaimRequest, SessionResponse](httpClient, baseURL+ClaimProcedure, opts...),
		unclaim:           connect.NewClient[ClaimRequest, SessionResponse](httpClient, baseURL+UnclaimProcedure, opts...),
		setMode:           connect.NewClient[SetModeRequest, SessionResponse](httpClient, baseURL+SetModeProcedure, opts...),
		analyzeReceipt:    connect.NewClient[AnalyzeReceiptRequest, SessionResponse](httpClient, baseURL+AnalyzeReceiptProcedure, opts...),
		shareMessage:      connect.NewClient[ShareMessageRequest, ShareMessageResponse](httpClient, baseURL+ShareMessageProcedure, opts...),
		sendShare:         connect.NewClient[ShareMessageRequest, ShareMessageResponse](httpClient, baseURL+SendShareProcedure, opts...),
		deleteSession:     connect.NewClient[DeleteSessionRequest, DeleteSessionResponse](httpClient, baseURL+DeleteSessionProcedure, opts...),
	}
}

func (c *SettlementServiceClient) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) AddParticipant(ctx context.Context, req *connect.Request[AddParticipantRequest]) (*connect.Response[SessionResponse], error) {
	return c.addParticipant.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[RemoveParticipantRequest]) (*connect.Response[SessionResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) SetTotal(ctx context.Context, req *connect.Request[SetTotalRequest]) (*connect.Response[SessionResponse], error) {
	return c.setTotal.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) SetQuantity(ctx context.Context, req *connect.Request[SetQuantityRequest]) (*connect.Response[SessionResponse], error) {
	return c.setQuantity.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) Claim(ctx context.Context, req *connect.Request[ClaimRequest]) (*connect.Response[SessionResponse], error) {
	return c.claim.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) Unclaim(ctx context.Context, req *connect.Request[ClaimRequest]) (*connect.Response[SessionResponse], error) {
	return c.unclaim.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) SetMode(ctx context.Context, req *connect.Request[SetModeRequest]) (*connect.Response[SessionResponse], error) {
	return c.setMode.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) AnalyzeReceipt(ctx context.Context, req *connect.Request[AnalyzeReceiptRequest]) (*connect.Response[SessionResponse], error) {
	return c.analyzeReceipt.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ShareMessage(ctx context.Context, req *connect.Request[ShareMessageRequest]) (*connect.Response[ShareMessageResponse], error) {
	return c.shareMessage.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) SendShare(ctx context.Context, req *connect.Request[ShareMessageRequest]) (*connect.Response[ShareMessageResponse], error) {
	return c.sendShare.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) DeleteSession(ctx context.Context, req *connect.Request[DeleteSessionRequest]) (*connect.Response[DeleteSessionResponse], error) {
	return c.deleteSession.CallUnary(ctx, req)
}
