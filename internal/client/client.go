package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgorozz/notflix/internal/models"
)

// APIError is a non-2xx response from the Notflix API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == status
}

// Client is a Notflix HTTP API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the API at baseURL. apiKey may be empty.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do executes a request and unmarshals a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e models.ErrorResponse
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + suffix
}

// ListShows returns the show catalog.
func (c *Client) ListShows(ctx context.Context) ([]models.Show, error) {
	var shows []models.Show
	if err := c.do(ctx, http.MethodGet, "/shows", nil, &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

// GetShow returns a single show.
func (c *Client) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	var show models.Show
	if err := c.do(ctx, http.MethodGet, idPath("/shows", id, ""), nil, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// StartShow creates a session for a show.
func (c *Client) StartShow(ctx context.Context, id int64) (*models.Session, error) {
	return c.session(ctx, http.MethodPost, idPath("/shows", id, "/start"), nil)
}

// ListSessions returns all sessions, or only those in state when state is
// non-empty.
func (c *Client) ListSessions(ctx context.Context, state models.SessionState) ([]models.Session, error) {
	path := "/sessions"
	if state != "" {
		path += "?" + url.Values{"state": {string(state)}}.Encode()
	}
	var list []models.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetSession returns a single session.
func (c *Client) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	return c.session(ctx, http.MethodGet, idPath("/sessions", id, ""), nil)
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/sessions", id, ""), nil, nil)
}

// Next advances a session by one episode.
func (c *Client) Next(ctx context.Context, id int64) (*models.Session, error) {
	return c.session(ctx, http.MethodPost, idPath("/sessions", id, "/next"), nil)
}

// Previous moves a session back one episode.
func (c *Client) Previous(ctx context.Context, id int64) (*models.Session, error) {
	return c.session(ctx, http.MethodPost, idPath("/sessions", id, "/previous"), nil)
}

// Restart moves a session back to S1E1.
func (c *Client) Restart(ctx context.Context, id int64) (*models.Session, error) {
	return c.session(ctx, http.MethodPost, idPath("/sessions", id, "/restart"), nil)
}

// Goto jumps a session to season/episode.
func (c *Client) Goto(ctx context.Context, id int64, season, episode int) (*models.Session, error) {
	body := models.GotoRequest{Season: season, Episode: episode}
	return c.session(ctx, http.MethodPost, idPath("/sessions", id, "/goto"), body)
}

func (c *Client) session(ctx context.Context, method, path string, body any) (*models.Session, error) {
	var sess models.Session
	if err := c.do(ctx, method, path, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
