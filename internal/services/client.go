// HTTP client for the separation service API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/soundlift/stemx/internal/shared"
)

// Client implements [SeparationService] against the HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration // applied to poll/cancel/delete calls; uploads run on the caller's context
}

var _ SeparationService = (*Client)(nil)

// NewClient creates a new separation service client.
func NewClient(baseURL string, client *http.Client, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		timeout:    timeout,
	}
}

// errorDetail is the body shape of non-2xx responses.
type errorDetail struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// Separate uploads the file as multipart form data and decodes the manifest payload.
//
// The request deliberately has no timeout beyond ctx: separation takes minutes
// and the server holds the connection open until the job finishes.
func (c *Client) Separate(ctx context.Context, taskID, fileName string, size int64, r io.Reader) (*SeparationResult, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	endpoint := fmt.Sprintf("%s/separate?task_id=%s", c.baseURL, url.QueryEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == StatusCancelled {
		return nil, shared.ErrRemoteCancelled
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}

	var result SeparationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode separation response: %w", err)
	}

	return &result, nil
}

// Progress fetches {progress, status} for the task.
func (c *Client) Progress(ctx context.Context, taskID string) (*ProgressReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/progress/%s", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}

	var report ProgressReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode progress response: %w", err)
	}

	return &report, nil
}

// Cancel posts a cancellation request for the task.
func (c *Client) Cancel(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/cancel/%s", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	return nil
}

// Delete removes the processed track server-side. 404 counts as success.
func (c *Client) Delete(ctx context.Context, trackID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/delete/%s", c.baseURL, url.PathEscape(trackID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		// Already gone remotely; local cleanup should still proceed.
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	return nil
}

// apiError wraps a non-2xx response into [shared.ErrAPIRequest], preferring the
// server's detail message when the body parses.
func apiError(status int, body []byte) error {
	var detail errorDetail
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Detail != "" {
			return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, detail.Detail, status)
		}
		if detail.Message != "" {
			return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, detail.Message, status)
		}
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, status)
}
