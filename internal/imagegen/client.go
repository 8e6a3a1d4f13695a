package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"reelforge/pkg/httputil"
)

const defaultBaseURL = "https://image.pollinations.ai"

type Client struct {
	httpClient *httputil.RetryClient
	baseURL    string
	model      string
	width      int
	height     int
}

type Config struct {
	BaseURL string
	Model   string
	Width   int
	Height  int
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: 90 * time.Second}, httputil.DefaultRetryConfig()),
		baseURL:    baseURL,
		model:      cfg.Model,
		width:      cfg.Width,
		height:     cfg.Height,
	}
}

// Generate renders one image for the prompt and writes it to outPath.
// The seed keeps regeneration deterministic for the same scene.
func (c *Client) Generate(ctx context.Context, prompt string, seed int, outPath string) error {
	imageURL := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		c.baseURL, url.PathEscape(prompt), c.width, c.height, c.model, seed)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("image service: %s - %s", resp.Status, string(body))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	return nil
}
