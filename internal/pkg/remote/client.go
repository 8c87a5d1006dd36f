package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"golang.org/x/oauth2"
)

const (
	locationsPath = "/api/v1/tracking/locations"
	sessionsPath  = "/api/v1/tracking/sessions"
)

// Client posts samples and finalized sessions to the attendance backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a remote client. When token is non-empty every request
// carries it as a bearer token.
func NewClient(ctx context.Context, baseURL, token string, timeout time.Duration) *Client {
	httpClient := &http.Client{}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, src)
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// APIError represents a failed call to the remote endpoint
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote API error %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("remote API error [%d] %s: %s", e.StatusCode, e.Path, e.Message)
}

// SendLocation posts a single sample.
func (c *Client) SendLocation(ctx context.Context, sample tracking.LocationSample) error {
	return c.post(ctx, locationsPath, newLocationPayload(sample))
}

// SaveSession posts a finalized session with its route.
func (c *Client) SaveSession(ctx context.Context, session tracking.TrackingSession) error {
	payload, err := newSessionPayload(session)
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrNetworkSend, err)
	}
	return c.post(ctx, sessionsPath, payload)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", tracking.ErrNetworkSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", tracking.ErrNetworkSend, &APIError{Path: path, Message: err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", tracking.ErrNetworkSend, &APIError{Path: path, Message: err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: %w", tracking.ErrNetworkSend, &APIError{
		StatusCode: resp.StatusCode,
		Path:       path,
		Message:    strings.TrimSpace(string(msg)),
	})
}
