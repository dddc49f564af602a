// Package vision calls an OpenAI-compatible vision model to caption an
// image. The capability is a black box returning raw text; the caller
// owns parsing and fallback.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"photobucket/internal/config"
)

var (
	// ErrExternalService marks a non-success response from the provider.
	ErrExternalService = errors.New("vision provider error")
	// ErrEmptyResponse marks a success response carrying no content.
	ErrEmptyResponse = errors.New("vision provider returned no content")
)

const instructions = `Analyze this image and generate metadata for a photo sharing platform.

REQUIREMENTS:
- Title: maximum 60 characters, compelling and descriptive
- Description: maximum 160 characters, engaging and informative

Respond with a JSON object in exactly this format:
{
  "title": "Your title here",
  "description": "Your description here"
}`

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg config.VisionConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the base64-encoded image to the model and returns the
// raw message content. The content is expected to contain JSON but is
// not validated here.
func (c *Client) Complete(ctx context.Context, imageBase64 string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "text",
						"text": instructions,
					},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url":    "data:image/jpeg;base64," + imageBase64,
							"detail": "high",
						},
					},
				},
			},
		},
		"max_tokens":      c.maxTokens,
		"temperature":     0.7,
		"response_format": map[string]any{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("vision provider returned non-success")
		return "", fmt.Errorf("%w: status %d: %s", ErrExternalService, resp.StatusCode, string(respBody))
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return parsed.Choices[0].Message.Content, nil
}
