package share

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultKakaoBaseURL is the Kakao REST API host.
const DefaultKakaoBaseURL = "https://kapi.kakao.com"

const memoSendPath = "/v2/api/talk/memo/default/send"

// KakaoSender sends settlement messages to the token owner's own KakaoTalk
// chat using the memo API.
type KakaoSender struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewKakaoSender creates a sender for the given API base URL and user access
// token. An empty baseURL selects DefaultKakaoBaseURL.
func NewKakaoSender(baseURL, accessToken string, timeout time.Duration) *KakaoSender {
	if baseURL == "" {
		baseURL = DefaultKakaoBaseURL
	}
	return &KakaoSender{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
	}
}

type kakaoLink struct {
	WebURL       string `json:"web_url"`
	MobileWebURL string `json:"mobile_web_url"`
}

type kakaoTextTemplate struct {
	ObjectType string    `json:"object_type"`
	Text       string    `json:"text"`
	Link       kakaoLink `json:"link"`
}

type kakaoError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Send posts msg as a text template.
func (s *KakaoSender) Send(ctx context.Context, msg Message) error {
	if s.accessToken == "" {
		return fmt.Errorf("kakao access token is not configured")
	}

	template, err := json.Marshal(kakaoTextTemplate{
		ObjectType: "text",
		Text:       msg.Text,
		Link:       kakaoLink{WebURL: msg.Link, MobileWebURL: msg.Link},
	})
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}

	form := url.Values{"template_object": {string(template)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+memoSendPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kakao memo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var kerr kakaoError
		if json.Unmarshal(body, &kerr) == nil && kerr.Msg != "" {
			return fmt.Errorf("kakao memo send failed: %s (code %d)", kerr.Msg, kerr.Code)
		}
		return fmt.Errorf("kakao memo send failed: %s", resp.Status)
	}

	slog.Debug("Kakao memo sent", "length", len(msg.Text))
	return nil
}
