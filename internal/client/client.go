// Package client talks to the task hub backend: task submission and credit balance.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/taskhub/internal/types"
)

const (
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 64 * 1024
	genericMessage = "The request failed. Please try again."
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s (HTTP %d)", genericMessage, e.Status)
}

// IsInsufficientCredits reports whether err is the backend's insufficient credits response.
func IsInsufficientCredits(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusPaymentRequired {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Detail), "insufficient credits")
}

// UserMessage returns text suitable for showing to the user: the server detail when
// present, otherwise a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return genericMessage
	}
	return genericMessage
}

// Client is an HTTP client for the backend API.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the API at baseURL, authenticating with a bearer token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL scheme: %q", u.Scheme)
	}

	c := &Client{
		baseURL:    u,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit sends a task and decodes the result.
func (c *Client) Submit(ctx context.Context, req *types.SubmitRequest) (*types.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/tasks/"+url.PathEscape(string(req.Task))+"/run", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	var result types.AnalysisResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Balance returns the user's available credits.
func (c *Client) Balance(ctx context.Context) (int, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/credits", nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Credits int `json:"credits"`
	}
	if err := c.do(httpReq, &resp); err != nil {
		return 0, err
	}
	return resp.Credits, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Detail: parseDetail(data)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseDetail extracts a message from an error body. It understands {"detail": "..."},
// {"detail": [{"msg": "..."}]}, {"error": "..."} and {"message": "..."}.
func parseDetail(body []byte) string {
	f, ok := types.ParseFields(body)
	if !ok {
		return ""
	}
	if d := f.String("detail"); d != "" {
		return d
	}
	if items := f.Objects("detail"); len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := item.String("msg"); m != "" {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if m := f.String("message"); m != "" {
		return m
	}
	return f.String("error")
}

func encodeMultipart(req *types.SubmitRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", req.Model); err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}
	if req.Text != "" {
		if err := w.WriteField("text", req.Text); err != nil {
			return nil, "", fmt.Errorf("failed to write text field: %w", err)
		}
	}
	if len(req.File) > 0 {
		part, err := w.CreateFormFile("file", req.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(req.File); err != nil {
			return nil, "", fmt.Errorf("failed to write file part: %w", err)
		}
	}

	names := make([]string, 0, len(req.Flags))
	for name := range req.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, strconv.FormatBool(req.Flags[name])); err != nil {
			return nil, "", fmt.Errorf("failed to write flag %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
