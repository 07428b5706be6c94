package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/dutchpay/internal/auth"
	"github.com/mmynk/dutchpay/internal/middleware"
	"github.com/mmynk/dutchpay/internal/models"
	"github.com/mmynk/dutchpay/internal/receipt"
	"github.com/mmynk/dutchpay/internal/session"
	"github.com/mmynk/dutchpay/internal/share"
	"github.com/mmynk/dutchpay/internal/storage/sqlite"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type fakeEndpoint struct {
	analysis *receipt.Analysis
	err      error
}

func (f *fakeEndpoint) Analyze(ctx context.Context, image []byte, filename, contentType string) (*receipt.Analysis, error) {
	return f.analysis, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []share.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg share.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type testServer struct {
	client   *SettlementServiceClient
	endpoint *fakeEndpoint
	sender   *fakeSender
	tokens   *auth.TokenManager
}

// setupTestServer creates a test server with a temp SQLite database and the
// production interceptor chain.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	endpoint := &fakeEndpoint{
		analysis: &receipt.Analysis{
			TotalPrice: models.NewNumber(24000),
			Items: []models.RawItem{
				{Name: "삼겹살", Price: models.NewNumber(18000), Quantity: models.NewNumber(2)},
				{Name: "냉면", Price: models.NewNumber(6000), Quantity: models.NewNumber(1)},
			},
		},
	}
	manager := session.NewManager(store, receipt.NewPipeline(endpoint), session.WithAnalysisTimeout(5*time.Second))
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	sender := &fakeSender{}
	svc := NewSettlementService(manager, tokens, WithSender(sender, "https://dutchpay.example/s"))

	path, handler := NewSettlementServiceHandler(svc, connect.WithInterceptors(
		middleware.RequireSession(tokens, PublicProcedures...),
		middleware.LoggingInterceptor(),
	))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{
		client:   NewSettlementServiceClient(http.DefaultClient, server.URL),
		endpoint: endpoint,
		sender:   sender,
		tokens:   tokens,
	}
}

// request builds an authorized request for token.
func request[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (ts *testServer) create(t *testing.T) string {
	t.Helper()
	resp, err := ts.client.CreateSession(context.Background(), connect.NewRequest(&CreateSessionRequest{}))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if resp.Msg.Token == "" || resp.Msg.SessionID == "" {
		t.Fatalf("CreateSession returned %+v", resp.Msg)
	}
	if resp.Msg.Session.Phase != string(models.PhaseIdle) || resp.Msg.Session.Mode != string(models.ModeEqualSplit) {
		t.Errorf("new session = %+v", resp.Msg.Session)
	}
	return resp.Msg.Token
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (%v)", got, want, err)
	}
}

func TestSettlementService_EqualSplit(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	for _, phone := range []string{"01011112222", "01033334444", "01055556666"} {
		if _, err := ts.client.AddParticipant(ctx, request(token, &AddParticipantRequest{Phone: phone})); err != nil {
			t.Fatalf("AddParticipant(%s) failed: %v", phone, err)
		}
	}

	resp, err := ts.client.SetTotal(ctx, request(token, &SetTotalRequest{Amount: 10000}))
	if err != nil {
		t.Fatalf("SetTotal failed: %v", err)
	}
	view := resp.Msg.Session
	if view.PerPerson != 3334 {
		t.Errorf("PerPerson = %d, want 3334", view.PerPerson)
	}
	for _, p := range view.Participants {
		if p.Amount != 3334 || p.AmountDisplay != "3,334원" {
			t.Errorf("participant %s = %d (%s)", p.ID, p.Amount, p.AmountDisplay)
		}
	}

	msg, err := ts.client.ShareMessage(ctx, request(token, &ShareMessageRequest{}))
	if err != nil {
		t.Fatalf("ShareMessage failed: %v", err)
	}
	want := "[정산 요청]\n총 금액: 10,000원\n\n--- N분의 1 정산 금액 ---\n1인당 3,334원"
	if msg.Msg.Text != want {
		t.Errorf("Text = %q, want %q", msg.Msg.Text, want)
	}
	// Share before analysis does not advance the phase.
	if msg.Msg.Session.Phase != string(models.PhaseIdle) {
		t.Errorf("Phase = %s, want IDLE", msg.Msg.Session.Phase)
	}
}

func TestSettlementService_ItemizedFlow(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	for _, phone := range []string{"01011112222", "01033334444"} {
		if _, err := ts.client.AddParticipant(ctx, request(token, &AddParticipantRequest{Phone: phone})); err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
	}

	_, err := ts.client.SetMode(ctx, request(token, &SetModeRequest{Mode: string(models.ModeItemized)}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	resp, err := ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: pngImage, Filename: "receipt.png"}))
	if err != nil {
		t.Fatalf("AnalyzeReceipt failed: %v", err)
	}
	view := resp.Msg.Session
	if view.Phase != string(models.PhaseAnalyzed) || view.Total != 24000 || len(view.Items) != 2 {
		t.Fatalf("after analysis: %+v", view)
	}
	if view.Items[0].UnitPrice != 9000 || view.Items[0].QuantityCap != 2 {
		t.Errorf("item 0 = %+v", view.Items[0])
	}

	if _, err := ts.client.SetMode(ctx, request(token, &SetModeRequest{Mode: string(models.ModeItemized)})); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}

	claim, err := ts.client.Claim(ctx, request(token, &ClaimRequest{Item: 0, Active: "01011112222"}))
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	item := claim.Msg.Session.Items[0]
	if !item.Checked || item.Disabled || item.Holder != "01011112222" {
		t.Errorf("claimed item view = %+v", item)
	}
	if claim.Msg.Session.Phase != string(models.PhaseAllocating) {
		t.Errorf("Phase = %s, want ALLOCATING", claim.Msg.Session.Phase)
	}

	_, err = ts.client.Claim(ctx, request(token, &ClaimRequest{Item: 0, Active: "01033334444"}))
	assertCode(t, err, connect.CodeInvalidArgument)

	other, err := ts.client.GetSession(ctx, request(token, &GetSessionRequest{Active: "01033334444"}))
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if it := other.Msg.Session.Items[0]; it.Checked || !it.Disabled {
		t.Errorf("item seen by other participant = %+v", it)
	}

	if _, err := ts.client.Claim(ctx, request(token, &ClaimRequest{Item: 1, Active: "01033334444"})); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	sent, err := ts.client.SendShare(ctx, request(token, &ShareMessageRequest{}))
	if err != nil {
		t.Fatalf("SendShare failed: %v", err)
	}
	if !strings.Contains(sent.Msg.Text, "01011112222: 18,000원\n") || !strings.Contains(sent.Msg.Text, "01033334444: 6,000원\n") {
		t.Errorf("Text = %q", sent.Msg.Text)
	}
	if sent.Msg.Session.Phase != string(models.PhaseReadyToSend) {
		t.Errorf("Phase = %s, want READY_TO_SEND", sent.Msg.Session.Phase)
	}
	if len(ts.sender.sent) != 1 || ts.sender.sent[0].Link != "https://dutchpay.example/s" {
		t.Errorf("sent = %+v", ts.sender.sent)
	}

	removed, err := ts.client.RemoveParticipant(ctx, request(token, &RemoveParticipantRequest{Index: 0}))
	if err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if removed.Msg.Session.Items[0].Holder != "" {
		t.Errorf("removing a participant should release their claims: %+v", removed.Msg.Session.Items[0])
	}
}

func TestSettlementService_SetQuantityClamps(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	if _, err := ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: pngImage, Filename: "r.png"})); err != nil {
		t.Fatalf("AnalyzeReceipt failed: %v", err)
	}

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"above cap", 5, 2},
		{"below one", 0, 1},
		{"within range", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.client.SetQuantity(ctx, request(token, &SetQuantityRequest{Item: 0, Quantity: tt.requested}))
			if err != nil {
				t.Fatalf("SetQuantity failed: %v", err)
			}
			if got := resp.Msg.Session.Items[0].Quantity; got != tt.want {
				t.Errorf("Quantity = %d, want %d", got, tt.want)
			}
		})
	}

	_, err := ts.client.SetQuantity(ctx, request(token, &SetQuantityRequest{Item: 9, Quantity: 1}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestSettlementService_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "missing token",
			call: func() error {
				_, err := ts.client.GetSession(ctx, connect.NewRequest(&GetSessionRequest{}))
				return err
			},
			want: connect.CodeUnauthenticated,
		},
		{
			name: "bad token",
			call: func() error {
				_, err := ts.client.GetSession(ctx, request("garbage", &GetSessionRequest{}))
				return err
			},
			want: connect.CodeUnauthenticated,
		},
		{
			name: "token for unknown session",
			call: func() error {
				other, err := ts.tokens.Generate("no-such-session")
				if err != nil {
					t.Fatalf("Generate failed: %v", err)
				}
				_, err = ts.client.GetSession(ctx, request(other, &GetSessionRequest{}))
				return err
			},
			want: connect.CodeNotFound,
		},
		{
			name: "empty participant",
			call: func() error {
				_, err := ts.client.AddParticipant(ctx, request(token, &AddParticipantRequest{Phone: "  "}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "negative total",
			call: func() error {
				_, err := ts.client.SetTotal(ctx, request(token, &SetTotalRequest{Amount: -1}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "unknown mode",
			call: func() error {
				_, err := ts.client.SetMode(ctx, request(token, &SetModeRequest{Mode: "HALF"}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "share without total",
			call: func() error {
				_, err := ts.client.ShareMessage(ctx, request(token, &ShareMessageRequest{}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "unsupported image",
			call: func() error {
				_, err := ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: []byte("plain text"), Filename: "a.txt"}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "remove unknown participant",
			call: func() error {
				_, err := ts.client.RemoveParticipant(ctx, request(token, &RemoveParticipantRequest{Index: 3}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}
}

func TestSettlementService_AnalysisFailureKeepsState(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	if _, err := ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: pngImage, Filename: "r.png"})); err != nil {
		t.Fatalf("AnalyzeReceipt failed: %v", err)
	}

	ts.endpoint.err = errors.New("connection refused")
	_, err := ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: pngImage, Filename: "r.png"}))
	assertCode(t, err, connect.CodeUnavailable)
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should carry the cause, got %v", err)
	}

	ts.endpoint.err = nil
	ts.endpoint.analysis = &receipt.Analysis{Error: "이미지를 인식할 수 없습니다"}
	_, err = ts.client.AnalyzeReceipt(ctx, request(token, &AnalyzeReceiptRequest{Image: pngImage, Filename: "r.png"}))
	assertCode(t, err, connect.CodeUnavailable)

	resp, err := ts.client.GetSession(ctx, request(token, &GetSessionRequest{}))
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	view := resp.Msg.Session
	if view.Phase != string(models.PhaseAnalyzed) || len(view.Items) != 2 || view.AnalysisInFlight {
		t.Errorf("failed analyses should leave the previous result: %+v", view)
	}
}

func TestSettlementService_SendShareDisabled(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewSettlementService(session.NewManager(store, receipt.NewPipeline(&fakeEndpoint{})), tokens)
	id := "disabled"
	ctx := middleware.WithSessionID(context.Background(), id)

	_, err = svc.SendShare(ctx, connect.NewRequest(&ShareMessageRequest{}))
	assertCode(t, err, connect.CodeUnimplemented)
}

func TestSettlementService_DeleteSession(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)

	if _, err := ts.client.DeleteSession(ctx, request(token, &DeleteSessionRequest{})); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	_, err := ts.client.GetSession(ctx, request(token, &GetSessionRequest{}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = ts.client.DeleteSession(ctx, request(token, &DeleteSessionRequest{}))
	assertCode(t, err, connect.CodeNotFound)
}

// logBuffer is written by the server goroutine and read by the test.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(b.buf.Bytes()), []byte("\n")) {
		var r map[string]any
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, r)
	}
	return out
}

func TestSettlementService_LogsCommandRequests(t *testing.T) {
	logs := &logBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ts := setupTestServer(t)
	ctx := context.Background()
	token := ts.create(t)
	if _, err := ts.client.AddParticipant(ctx, request(token, &AddParticipantRequest{Phone: "01011112222"})); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	var received, rpc map[string]any
	for _, r := range logs.records(t) {
		switch r["msg"] {
		case "AddParticipant request received":
			received = r
		case "RPC ok":
			if r["procedure"] == AddParticipantProcedure {
				rpc = r
			}
		}
	}
	if received == nil || received["session_id"] == "" {
		t.Errorf("missing request log, got %v", received)
	}
	if rpc == nil || rpc["participants"] != float64(1) || rpc["phase"] != string(models.PhaseIdle) {
		t.Errorf("RPC log = %v", rpc)
	}
	for _, r := range logs.records(t) {
		for k, v := range r {
			if v == "01011112222" {
				t.Errorf("phone number logged under %q in %v", k, r)
			}
		}
	}
}
