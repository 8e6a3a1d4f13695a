package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"reelforge/internal/speech"
	"reelforge/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	timeout        = 120 * time.Second
	defaultModel   = "eleven_multilingual_v2"
)

// doer lets tests swap in a bare client without the retry wrapper.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient doer
	voiceID    string
	model      string
	baseURL    string
	stability  float64
	similarity float64
}

type Config struct {
	APIKeys    []string
	VoiceID    string
	Model      string
	Stability  float64
	Similarity float64
}

type option func(*Client)

type timestampResponse struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

type alignment struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client *http.Client) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) speech.Provider {
	return newClient(cfg)
}

func newClient(cfg Config, opts ...option) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	c := &Client{
		apiKeys:    keys,
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: timeout}, httputil.DefaultRetryConfig()),
		voiceID:    cfg.VoiceID,
		model:      model,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Synthesize(ctx context.Context, text string) (*speech.SpeechResult, error) {
	url := c.buildURL(c.voiceID)

	startKey := c.nextAPIKey()
	result, err := c.doRequestWithKey(ctx, url, text, startKey)
	if err == nil {
		return result, nil
	}
	if !isQuotaError(err) {
		return nil, err
	}

	for i := 1; i < len(c.apiKeys); i++ {
		key := c.getKeyAtOffset(i)
		if key == startKey {
			continue
		}
		result, err = c.doRequestWithKey(ctx, url, text, key)
		if err == nil {
			return result, nil
		}
		if !isQuotaError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", err)
}

func (c *Client) nextAPIKey() string {
	if len(c.apiKeys) == 1 {
		return c.apiKeys[0]
	}
	idx := atomic.AddUint64(&c.keyIndex, 1)
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

func (c *Client) getKeyAtOffset(offset int) string {
	idx := atomic.LoadUint64(&c.keyIndex)
	return c.apiKeys[(idx+uint64(offset))%uint64(len(c.apiKeys))]
}

func (c *Client) doRequestWithKey(ctx context.Context, url, text, apiKey string) (*speech.SpeechResult, error) {
	req, err := c.buildRequestWithKey(ctx, url, text, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, string(body))
	}

	return parseResponse(text, body)
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "quota_exceeded") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "429")
}

func (c *Client) buildURL(voiceID string) string {
	base := c.baseURL
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/text-to-speech/%s/with-timestamps", base, voiceID)
}

func (c *Client) buildRequestWithKey(ctx context.Context, url, text, apiKey string) (*http.Request, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": c.model,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarity,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	return req, nil
}

func parseResponse(text string, body []byte) (*speech.SpeechResult, error) {
	var tsResp timestampResponse
	if err := json.Unmarshal(body, &tsResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(tsResp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	return &speech.SpeechResult{
		Audio:      audio,
		Characters: parseAlignment(text, audio, tsResp.Alignment),
	}, nil
}

func parseAlignment(text string, audio []byte, align *alignment) []speech.CharTiming {
	if align == nil || len(align.Characters) == 0 {
		return speech.EstimateTimings(text, audio)
	}

	count := len(align.Characters)
	if len(align.CharacterStartTimes) < count {
		count = len(align.CharacterStartTimes)
	}
	if len(align.CharacterEndTimes) < count {
		count = len(align.CharacterEndTimes)
	}

	chars := make([]speech.CharTiming, 0, count)
	for i := 0; i < count; i++ {
		chars = append(chars, speech.CharTiming{
			Char:  align.Characters[i],
			Start: align.CharacterStartTimes[i],
			End:   align.CharacterEndTimes[i],
		})
	}

	if len(chars) == 0 {
		return speech.EstimateTimings(text, audio)
	}

	return chars
}
