// Package tool provides the outbound webhook client used by the
// api_webhook node.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookResult is the outcome of a webhook call.
type WebhookResult struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Body is the response body as a string.
	Body string

	// Duration is the wall-clock time the call took.
	Duration time.Duration
}

// WebhookError reports a failed webhook call: a transport error, a
// timeout, or a non-success status. The engine never retries these
// automatically; the traversal takes the node's failure path instead.
type WebhookError struct {
	URL        string
	StatusCode int // zero when the call never completed
	Timeout    bool
	Cause      error
}

// Error implements the error interface.
func (e *WebhookError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("webhook %s timed out", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("webhook %s failed: %v", e.URL, e.Cause)
	}
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *WebhookError) Unwrap() error {
	return e.Cause
}

// WebhookRequest describes one outbound call. It mirrors the
// api_webhook node's apiConfig payload.
type WebhookRequest struct {
	URL     string
	Method  string
	Headers map[string]string

	// Auth, when set, is sent as the Authorization header.
	Auth string

	// Body is the optional request body, sent for POST/PUT/PATCH.
	Body string

	// Timeout is the call budget in seconds. Zero applies
	// DefaultTimeout.
	Timeout int
}

// DefaultTimeout bounds webhook calls whose node config omits a
// timeout.
const DefaultTimeout = 10 * time.Second

// WebhookClient executes api_webhook node calls.
//
// Each call is bounded by the request's configured timeout via context
// deadline; the shared http.Client itself carries no timeout.
type WebhookClient struct {
	client *http.Client
}

// NewWebhookClient creates a webhook client. A nil httpClient selects
// http.DefaultClient semantics with per-call context deadlines.
func NewWebhookClient(httpClient *http.Client) *WebhookClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WebhookClient{client: httpClient}
}

// Call executes one webhook request.
//
// Returns a *WebhookError when the call times out, fails at transport
// level, or answers with a non-2xx status. On success the response body
// is returned for capture into the conversation's variable store.
func (w *WebhookClient) Call(ctx context.Context, req WebhookRequest) (WebhookResult, error) {
	if req.URL == "" {
		return WebhookResult{}, &WebhookError{URL: req.URL, Cause: fmt.Errorf("url is required")}
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := DefaultTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = bytes.NewBufferString(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return WebhookResult{}, &WebhookError{URL: req.URL, Cause: err}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Auth != "" {
		httpReq.Header.Set("Authorization", req.Auth)
	}

	start := time.Now()
	resp, err := w.client.Do(httpReq)
	if err != nil {
		return WebhookResult{}, &WebhookError{
			URL:     req.URL,
			Timeout: ctx.Err() == context.DeadlineExceeded,
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return WebhookResult{}, &WebhookError{URL: req.URL, Cause: err}
	}

	result := WebhookResult{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Duration:   time.Since(start),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &WebhookError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	return result, nil
}
