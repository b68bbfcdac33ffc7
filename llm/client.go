// Package llm talks to an OpenAI-compatible chat endpoint to turn an
// excerpt into a typed record. It uses net/http directly — no SDK needed
// for two endpoints and a fixed schema.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/models"
)

// Client is a structured-extraction client for one OpenAI-compatible
// endpoint. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        config.LLMConfig

	// now is injectable for tests; the extraction prompt embeds today's
	// date so the model can disambiguate year-less dates.
	now func() time.Time
}

// NewClient creates a Client. Pass nil to use a default http.Client.
func NewClient(httpClient *http.Client, cfg config.LLMConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{httpClient: httpClient, cfg: cfg, now: time.Now}
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractEvent asks the model for an event record. Unlocatable fields
// come back null, never fabricated.
func (c *Client) ExtractEvent(ctx context.Context, excerptText, sourceURL string) (*models.EventRecord, error) {
	raw, err := c.complete(ctx, eventPrompt(c.now()), excerptText, sourceURL)
	if err != nil {
		return nil, err
	}
	var record models.EventRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("llm: malformed event record: %w", err)
	}
	return &record, nil
}

// ExtractUpdate asks the model for an article/update record.
func (c *Client) ExtractUpdate(ctx context.Context, excerptText, sourceURL string) (*models.UpdateRecord, error) {
	raw, err := c.complete(ctx, updatePrompt(c.now()), excerptText, sourceURL)
	if err != nil {
		return nil, err
	}
	var record models.UpdateRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("llm: malformed update record: %w", err)
	}
	return &record, nil
}

// complete sends one chat completion and returns the validated JSON body
// of the first choice.
func (c *Client) complete(ctx context.Context, systemPrompt, excerptText, sourceURL string) (json.RawMessage, error) {
	userContent := fmt.Sprintf("Source URL: %s\n\nPage excerpt:\n%s", sourceURL, excerptText)

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("llm: parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("llm: response contained no choices")
	}

	raw := chatResp.Choices[0].Message.Content
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("llm: model returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
