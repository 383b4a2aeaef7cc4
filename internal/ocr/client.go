package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-ocr/internal/invoice"
)

// DefaultEndpoint is where the OCR backend listens by default
const DefaultEndpoint = "http://localhost:8888/api/ocr"

// maxResponseSize bounds how much of a response body is read
const maxResponseSize = 10 << 20

// Recognizer defines the interface for invoice recognition
type Recognizer interface {
	// Recognize sends one file to the OCR service and returns the decoded
	// invoice. Failures are always *Error.
	Recognize(ctx context.Context, file File) (*invoice.InvoiceResult, error)
}

// HTTPClient implements Recognizer against the POST /api/ocr endpoint
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a new HTTPClient. Zero values fall back to
// DefaultEndpoint and a two minute timeout, matching the backend's worker
// timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &HTTPClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the URL requests are sent to
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeFile builds the single-part multipart body carrying the file
func encodeFile(file File) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("writing form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

// Recognize posts the file and decodes the response envelope. It makes
// exactly one request and never retries.
func (c *HTTPClient) Recognize(ctx context.Context, file File) (*invoice.InvoiceResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, contentType, err := encodeFile(file)
	if err != nil {
		return nil, protocolError("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, networkError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	slog.Info("Sending OCR request",
		"req_id", reqID,
		"url", c.endpoint,
		"filename", file.Name,
		"content_type", file.ContentType,
		"file_size", len(file.Data),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("OCR request failed", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, networkError(fmt.Errorf("calling OCR API: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		slog.Error("Reading OCR response failed", "req_id", reqID, "error", err)
		return nil, networkError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Unexpected OCR response status", "req_id", reqID, "status", resp.StatusCode)
		return nil, protocolError("OCR API error (status %d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	result, err := parseEnvelope(data)
	if err != nil {
		slog.Warn("OCR recognition failed", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	slog.Info("OCR request completed",
		"req_id", reqID,
		"invoice_number", result.InvoiceNumber,
		"items", len(result.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
