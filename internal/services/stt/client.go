// Package stt uploads extracted audio to a speech-to-text endpoint and
// returns the transcript. The wire format follows the OpenAI audio
// transcription API, which the compatible self-hosted servers also speak.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the STT API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the audio transcription endpoint.
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

// NewClient constructs an STT client using the supplied configuration.
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
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the audio file and returns the recognized text.
// language is the source language code passed through as a decoding hint.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return "", errors.New("stt transcribe: audio path required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("stt transcribe: api key required")
	}
	if c.cfg.BaseURL == "" {
		return "", errors.New("stt transcribe: base url required")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("stt transcribe: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("stt transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("stt transcribe: read audio: %w", err)
	}
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("stt transcribe: build form: %w", err)
	}
	if language = strings.TrimSpace(language); language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("stt transcribe: build form: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("stt transcribe: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("stt transcribe: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, &body)
	if err != nil {
		return "", fmt.Errorf("stt transcribe: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt transcribe: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stt transcribe: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("stt transcribe: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("stt transcribe: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("stt transcribe: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		return "", errors.New("stt transcribe: empty transcript")
	}
	return text, nil
}

// HealthCheck verifies the endpoint is reachable without uploading audio.
// A 4xx other than auth failure still proves reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("stt health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("stt health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stt health: %w", err)
	}
	resp.Body.Close()
	return nil
}
