package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/mmynk/dutchpay/internal/receipt"

// maxResponseBytes bounds the analysis response body.
const maxResponseBytes = 1 << 20

// Client calls the receipt analysis endpoint.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a client posting to url. A nil httpClient selects
// http.DefaultClient; timeouts are applied per call by the caller's context.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, url: url}
}

// Analyze uploads image as the "receipt" form file and decodes the result.
// A body carrying an error field is returned as is; callers check Err.
func (c *Client) Analyze(ctx context.Context, image []byte, filename, contentType string) (*Analysis, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "receipt.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("receipt.size_bytes", len(image)),
		attribute.String("receipt.content_type", contentType),
	)

	body, formType, err := encodeForm(image, filename, contentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode form")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("network response was not ok: %s", resp.Status)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var analysis Analysis
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&analysis); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode response")
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	span.SetAttributes(attribute.Int("receipt.items", len(analysis.Items)))
	return &analysis, nil
}

func encodeForm(image []byte, filename, contentType string) (io.Reader, string, error) {
	if filename == "" {
		filename = "receipt"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
