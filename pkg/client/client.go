// Package client talks to the parking detector's HTTP endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"parkvision/pkg/log"
	"parkvision/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	UploadPath = "/upload"
	CountsPath = "/counts"
	HealthPath = "/api/health"

	uploadField  = "file"
	maxErrorBody = 512
)

// Options tune the underlying retrying HTTP client. Zero RetryMax means a
// single attempt; zero Timeout leaves the transport defaults in place.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Client is a detector API client.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// New creates a client for the detector at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = opts.RetryWaitMax
	}
	httpClient.HTTPClient.Timeout = opts.Timeout
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = log.NewLeveled(log.Component("client"))

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
	}, nil
}

// BaseURL returns the detector URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload posts an image as multipart form field "file".
// A response with success:false yields an *ApplicationError.
func (c *Client) Upload(ctx context.Context, filename string, body io.Reader) (*models.UploadResponse, error) {
	payload, contentType, err := multipartBody(filename, body)
	if err != nil {
		return nil, &TransportError{Op: "prepare upload", Err: err}
	}

	resp, err := c.do(ctx, http.MethodPost, UploadPath, payload, contentType)
	if err != nil {
		return nil, err
	}

	var result models.UploadResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		if resp.statusCode < 200 || resp.statusCode >= 300 {
			return nil, &TransportError{Op: "upload", Err: resp.statusError()}
		}
		return nil, &TransportError{Op: "decode upload response", Err: err}
	}

	if !result.Success {
		return nil, &ApplicationError{StatusCode: resp.statusCode, Message: result.Error}
	}

	return &result, nil
}

// Counts fetches the current occupancy.
func (c *Client) Counts(ctx context.Context) (models.OccupancyStats, error) {
	var stats models.OccupancyStats
	if err := c.doJSON(ctx, CountsPath, "fetch counts", &stats); err != nil {
		return models.OccupancyStats{}, err
	}
	return stats, nil
}

// Health fetches the detector health report.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	if err := c.doJSON(ctx, HealthPath, "fetch health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

type rawResponse struct {
	statusCode int
	status     string
	body       []byte
}

func (r *rawResponse) statusError() *StatusError {
	body := strings.TrimSpace(string(r.body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{StatusCode: r.statusCode, Status: r.status, Body: body}
}

// do performs a request and reads the full body regardless of status.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*rawResponse, error) {
	var reqBody interface{}
	if body != nil {
		reqBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &TransportError{Op: "create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("Failed to close response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}

	return &rawResponse{
		statusCode: resp.StatusCode,
		status:     resp.Status,
		body:       respBody,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, path, op string, result interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}

	if resp.statusCode < 200 || resp.statusCode >= 300 {
		return &TransportError{Op: op, Err: resp.statusError()}
	}

	if err := json.Unmarshal(resp.body, result); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// multipartBody buffers the form so retries can replay it.
func multipartBody(filename string, src io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(uploadField, filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
