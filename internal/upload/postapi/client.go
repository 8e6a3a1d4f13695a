package postapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"reelforge/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.post-bridge.dev/v1"
	defaultTimeout = 5 * time.Minute
)

// doer lets tests swap in a bare client without the retry wrapper.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the multi-platform post provider: media goes up first,
// then a post referencing the media handle fans out to platform accounts.
type Client struct {
	apiKey     string
	httpClient doer
	baseURL    string
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type PlatformTarget struct {
	Platform string `json:"platform"`
	Account  string `json:"account"`
}

type PostRequest struct {
	MediaID     string           `json:"media_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags,omitempty"`
	Targets     []PlatformTarget `json:"targets"`
	PublishAt   *time.Time       `json:"publish_at,omitempty"`
}

type PlatformResult struct {
	Platform string `json:"platform"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type JobStatus struct {
	Status   string           `json:"status"`
	Progress int              `json:"progress"`
	Error    string           `json:"error,omitempty"`
	Results  []PlatformResult `json:"results,omitempty"`
}

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

func (s *JobStatus) Terminal() bool {
	return s.Status == JobStatusCompleted || s.Status == JobStatusFailed
}

// UploadMedia streams the file up and returns the provider's media handle.
func (c *Client) UploadMedia(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("provider returned no media id")
	}

	return result.ID, nil
}

// CreatePost submits the post and returns the provider's job id.
func (c *Client) CreatePost(ctx context.Context, post PostRequest) (string, error) {
	data, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		return "", fmt.Errorf("provider returned no job id")
	}

	return result.JobID, nil
}

func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var status JobStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DeletePost removes a scheduled post. A 404 means it is already gone and
// counts as success.
func (c *Client) DeletePost(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/posts/"+jobID, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post provider: %s - %s", resp.Status, string(body))
	}

	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post provider: %s - %s", resp.Status, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	return nil
}
