// Package tts renders translated text to speech through an audio synthesis
// endpoint and streams the result straight to disk. Output format matches
// what the OpenAI speech API returns for "wav".
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the TTS API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	TimeoutSeconds int
}

// Client wraps the speech synthesis endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Voice:          strings.TrimSpace(cfg.Voice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders text to speech and writes the audio to destPath.
func (c *Client) Synthesize(ctx context.Context, text, destPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("tts synthesize: text required")
	}
	if destPath = strings.TrimSpace(destPath); destPath == "" {
		return errors.New("tts synthesize: destination path required")
	}
	if c.cfg.APIKey == "" {
		return errors.New("tts synthesize: api key required")
	}
	if c.cfg.BaseURL == "" {
		return errors.New("tts synthesize: base url required")
	}

	encoded, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Voice:          c.cfg.Voice,
		Input:          text,
		ResponseFormat: "wav",
	})
	if err != nil {
		return fmt.Errorf("tts synthesize: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("tts synthesize: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts synthesize: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tts synthesize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("tts synthesize: create output: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("tts synthesize: write output: %w", err)
	}
	if written == 0 {
		os.Remove(destPath)
		return errors.New("tts synthesize: empty audio response")
	}
	return nil
}

// HealthCheck verifies the endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("tts health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("tts health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts health: %w", err)
	}
	resp.Body.Close()
	return nil
}
