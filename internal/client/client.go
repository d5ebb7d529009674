package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/socialshields/mhdash/internal/labeling"
	"github.com/socialshields/mhdash/internal/models"
	"github.com/socialshields/mhdash/internal/stats"
)

// Client talks to the dashboard HTTP API. Used by the terminal labeling
// client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

type apiError struct {
	Error string `json:"error"`
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Login checks credentials and returns the session token when the server
// issues one.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := c.post(ctx, "/api/login", payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// UnlabelledPosts fetches the next batch of posts the user has not labeled.
// An empty slice means there is no work left.
func (c *Client) UnlabelledPosts(ctx context.Context, username string) ([]*models.Post, error) {
	endpoint := "/api/unlabelled_posts?username=" + url.QueryEscape(username)
	var resp struct {
		Posts []*models.Post `json:"posts"`
	}
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// SubmitLabels sends a completed batch and returns the shared submission
// timestamp.
func (c *Client) SubmitLabels(ctx context.Context, username string, items []labeling.SubmitItem) (time.Time, error) {
	payload := map[string]interface{}{
		"username": username,
		"labels":   items,
	}
	var resp struct {
		Success   bool   `json:"success"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.post(ctx, "/api/submit_labels", payload, &resp); err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, resp.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return ts, nil
}

// Stats fetches the dashboard aggregate snapshot.
func (c *Client) Stats(ctx context.Context) (*stats.Snapshot, error) {
	var snap stats.Snapshot
	if err := c.get(ctx, "/api/stats", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(endpoint), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(endpoint), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) resolve(endpoint string) string {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return c.baseURL.String() + endpoint
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
