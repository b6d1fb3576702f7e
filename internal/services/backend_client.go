package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	widgetcontext "chatwidget/internal/context"
	"chatwidget/internal/logger"
	"chatwidget/pkg/widgettypes"
)

// SDK endpoint paths relative to the configured base URL.
const (
	registerPath = "/api/sdk/v1/register"
	messagePath  = "/api/sdk/v1/message"
)

// BackendClient talks to the remote widget SDK API: the registration
// handshake and the message endpoint. Network and non-2xx failures are
// returned as plain errors; the session controller decides how to recover.
type BackendClient struct {
	initialized bool
	timeout     time.Duration
	client      *http.Client
}

// registerRequest is the wire body of the registration handshake.
type registerRequest struct {
	APIKey string `json:"apiKey"`
	Tenant string `json:"tenant"`
}

// RegisterResponse is the backend's answer to a successful registration.
type RegisterResponse struct {
	Session  string                `json:"session"`
	License  widgettypes.License   `json:"license"`
	Chatbot  *widgettypes.Bot      `json:"chatbot,omitempty"`
	FAQs     []widgettypes.FAQ     `json:"faqs,omitempty"`
	Products []widgettypes.Product `json:"products,omitempty"`
	Module   string                `json:"module,omitempty"`
}

// messageRequest is the wire body of a chat message submission.
type messageRequest struct {
	APIKey  string `json:"apiKey"`
	Tenant  string `json:"tenant"`
	Session string `json:"session"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// MessageResponse is the backend's answer to a message submission. A limit
// condition is signaled either through Type == "limit_reached" or the
// boolean flag; it must never be treated as a normal answer.
type MessageResponse struct {
	Answer       string `json:"answer"`
	Type         string `json:"type,omitempty"`
	LimitReached bool   `json:"limit_reached,omitempty"`
}

// IsLimitReached reports whether the response is the distinguished quota
// signal rather than a normal answer.
func (m *MessageResponse) IsLimitReached() bool {
	return m.LimitReached || m.Type == "limit_reached"
}

// NewBackendClient creates a new BackendClient with a default timeout of 30
// seconds.
func NewBackendClient() *BackendClient {
	return &BackendClient{
		initialized: false,
		timeout:     30 * time.Second,
	}
}

// Name returns the service name "backend" for registration.
func (b *BackendClient) Name() string {
	return "backend"
}

// Initialize sets up the underlying HTTP client.
func (b *BackendClient) Initialize() error {
	b.client = &http.Client{
		Timeout: b.timeout,
	}
	b.initialized = true
	logger.Debug("BackendClient initialized", "timeout", b.timeout.String())
	return nil
}

// SetTimeout configures the request timeout for subsequent calls.
func (b *BackendClient) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
	if b.client != nil {
		b.client.Timeout = timeout
	}
}

// Register performs the registration handshake using the base URL, API key
// and tenant from the widget context.
func (b *BackendClient) Register(ctx context.Context) (*RegisterResponse, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend client not initialized")
	}

	cfg := widgetcontext.GetGlobalContext().Config()
	body := registerRequest{APIKey: cfg.APIKey, Tenant: cfg.Tenant}

	var out RegisterResponse
	if err := b.post(ctx, cfg.BaseURL+registerPath, cfg.APIKey, body, &out); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	logger.Debug("Registration succeeded",
		"session", out.Session != "",
		"license_active", out.License.Active,
		"faqs", len(out.FAQs),
		"products", len(out.Products))
	return &out, nil
}

// SendMessage submits a chat message for the given session and returns the
// backend's answer or limit signal.
func (b *BackendClient) SendMessage(ctx context.Context, session, message, name string) (*MessageResponse, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend client not initialized")
	}

	cfg := widgetcontext.GetGlobalContext().Config()
	body := messageRequest{
		APIKey:  cfg.APIKey,
		Tenant:  cfg.Tenant,
		Session: session,
		Message: message,
		Name:    name,
	}

	var out MessageResponse
	if err := b.post(ctx, cfg.BaseURL+messagePath, cfg.APIKey, body, &out); err != nil {
		return nil, fmt.Errorf("message send failed: %w", err)
	}
	return &out, nil
}

// post marshals body, performs a bearer-authenticated POST and decodes the
// JSON response into out. Non-2xx statuses are errors.
func (b *BackendClient) post(ctx context.Context, url, apiKey string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Debug("Backend request", "url", url, "body_length", len(payload))

	resp, err := b.client.Do(httpReq)
	if err != nil {
		logger.Error("Backend request failed", "error", err, "url", url)
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error on close
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("Backend returned non-2xx status", "status", resp.StatusCode, "url", url)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
