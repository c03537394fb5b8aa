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
	"time"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Client is a Go SDK for exercise-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new exercise-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// MarkupRequest submits HTML and CSS for a markup-style exercise
type MarkupRequest struct {
	LearnerID string `json:"learner_id,omitempty"`
	HTML      string `json:"html"`
	CSS       string `json:"css"`
}

// ComponentRequest submits a rendered component tree. A nil Tree means the
// component rendered nothing.
type ComponentRequest struct {
	LearnerID string       `json:"learner_id,omitempty"`
	Name      string       `json:"-"`
	Tree      *models.Node `json:"-"`
}

// MarshalJSON nests the component the way the server expects it
func (r ComponentRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(models.VerifyRequest{
		LearnerID: r.LearnerID,
		Component: &models.ComponentSubmissionDTO{Name: r.Name, Tree: r.Tree},
	})
}

// AttemptListOptions contains options for listing attempts
type AttemptListOptions struct {
	LearnerID string
	Limit     int
	Offset    int
}

// ListExercises retrieves exercise summaries, optionally filtered by kind
func (c *Client) ListExercises(ctx context.Context, kind models.Kind) ([]models.Summary, error) {
	path := "/api/v1/exercises"
	if kind != "" {
		path += "?kind=" + url.QueryEscape(string(kind))
	}

	var data struct {
		Exercises []models.Summary `json:"exercises"`
		Total     int              `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Exercises, nil
}

// GetExercise retrieves an exercise by slug
func (c *Client) GetExercise(ctx context.Context, slug string) (*models.Exercise, error) {
	var ex models.Exercise
	if err := c.call(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(slug), nil, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// VerifyMarkup grades HTML and CSS against a markup-style exercise
func (c *Client) VerifyMarkup(ctx context.Context, slug string, req MarkupRequest) (*models.Attempt, error) {
	return c.verify(ctx, slug, req)
}

// VerifyComponent grades a rendered component against a component exercise
func (c *Client) VerifyComponent(ctx context.Context, slug string, req ComponentRequest) (*models.Attempt, error) {
	return c.verify(ctx, slug, req)
}

func (c *Client) verify(ctx context.Context, slug string, req interface{}) (*models.Attempt, error) {
	var attempt models.Attempt
	path := fmt.Sprintf("/api/v1/exercises/%s/verify", url.PathEscape(slug))
	if err := c.call(ctx, http.MethodPost, path, req, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListAttempts retrieves recorded attempts for an exercise
func (c *Client) ListAttempts(ctx context.Context, slug string, opts AttemptListOptions) ([]*models.Attempt, error) {
	q := url.Values{}
	if opts.LearnerID != "" {
		q.Set("learner_id", opts.LearnerID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := fmt.Sprintf("/api/v1/exercises/%s/attempts", url.PathEscape(slug))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var data struct {
		Attempts []*models.Attempt `json:"attempts"`
		Total    int               `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Attempts, nil
}

// GetAttempt retrieves an attempt by ID
func (c *Client) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := c.call(ctx, http.MethodGet, "/api/v1/attempts/"+url.PathEscape(id), nil, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// call performs a request and unwraps the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(resp))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error == nil {
			result.Error = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		result.Error.Status = status
		return result.Error
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
