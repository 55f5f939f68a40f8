package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ClassifierClient calls an OpenAI-compatible chat-completions endpoint. The
// model is a black box that may fail or return malformed JSON; every call
// site substitutes its own documented default on error.
type ClassifierClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewClassifierClient(endpoint, apiKey, model string) *ClassifierClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &ClassifierClient{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify sends the prompt pair and returns the raw completion text.
func (c *ClassifierClient) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("classifier status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// ClassifyInto decodes the completion as JSON into out. Completions wrapped
// in markdown code fences are unwrapped first.
func (c *ClassifierClient) ClassifyInto(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	text, err := c.Classify(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(stripCodeFence(text)), out)
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
