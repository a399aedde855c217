package propose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/calibrant/scenex/internal/tree"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	anthropicModel      = "claude-3-haiku-20240307"
)

// AnthropicClient implements the Client interface using the Anthropic
// Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	timeout    time.Duration
	categories []string
	httpClient *http.Client
}

// NewAnthropicClient creates a new AnthropicClient with the given
// configuration and category set. If config.APIKey is empty, it falls back
// to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(config ClientConfig, categories []string) *AnthropicClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	model := config.Model
	if model == "" {
		model = anthropicModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		categories: categories,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// anthropicRequest represents a request to the Anthropic Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage represents a message in the Anthropic API format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents a response from the Anthropic Messages API.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Propose asks the Messages API for candidate modifications and parses the
// JSON response into raw proposals.
func (c *AnthropicClient) Propose(ctx context.Context, node *tree.Node, sourceContext string, maxProposals int) ([]Proposal, error) {
	if !c.Available() {
		return nil, fmt.Errorf("anthropic client not available: missing API key")
	}

	prompt := ProposalPrompt(node, sourceContext, c.categories, maxProposals)
	response, err := c.sendRequest(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating proposals: %w", err)
	}
	return ParseProposalsResponse(response)
}

// Available returns true when an API key is configured.
func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// sendRequest sends a prompt to the Anthropic API and returns the text response.
func (c *AnthropicClient) sendRequest(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response from API (status %d)", resp.StatusCode)
	}

	return apiResp.Content[0].Text, nil
}
