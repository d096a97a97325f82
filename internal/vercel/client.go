package vercel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

// Client is a thin client for the Vercel provisioning API. It attaches the
// bearer credential to every request and, when a team scope is configured,
// appends it as a teamId query parameter.
type Client struct {
	baseURL    string
	teamID     string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	TeamID  string
	// HTTPClient overrides the default bearer-authenticated client. Used in
	// tests; when set, Token is ignored.
	HTTPClient *http.Client
}

// New creates a client for the provisioning API.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("vercel: base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("vercel: access token is required")
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		teamID:     opts.TeamID,
		httpClient: httpClient,
	}, nil
}

// APIError is a non-2xx response from the provisioning API. Body carries the
// upstream error payload verbatim so callers can pass it through as details.
type APIError struct {
	Status int
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("vercel: API returned status %d", e.Status)
	}
	return fmt.Sprintf("vercel: API returned status %d: %s", e.Status, msg)
}

// do performs a JSON request against the API and decodes the response into
// out (which may be nil for endpoints whose body is ignored). Empty 2xx
// bodies are tolerated.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, query, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call provisioning API: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

// newRequest builds a request with the team scope attached.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.teamID != "" {
		query.Set("teamId", c.teamID)
	}

	u := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func decode(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: data}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
