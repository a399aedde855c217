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
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIClient implements the Client interface using an OpenAI-compatible
// chat completions API. A custom BaseURL serves ollama and other
// compatible endpoints.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	categories []string
	client     *http.Client
}

// NewOpenAIClient creates a new OpenAIClient with the given configuration
// and category set. If config.APIKey is empty, it falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAIClient(config ClientConfig, categories []string) *OpenAIClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = openAIEndpoint
	}

	model := config.Model
	if model == "" {
		model = openAIDefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		timeout:    timeout,
		categories: categories,
		client:     &http.Client{Timeout: timeout},
	}
}

// openAIChatRequest represents a request to the chat completions API.
type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

// openAIChatMessage represents a message in the OpenAI chat format.
type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIChatResponse represents a response from the chat completions API.
type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Propose asks the chat completions API for candidate modifications and
// parses the JSON response into raw proposals.
func (c *OpenAIClient) Propose(ctx context.Context, node *tree.Node, sourceContext string, maxProposals int) ([]Proposal, error) {
	prompt := ProposalPrompt(node, sourceContext, c.categories, maxProposals)

	response, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating proposals: %w", err)
	}
	return ParseProposalsResponse(response)
}

// Available returns true when an API key is configured or a custom endpoint
// (which may not require one) is in use.
func (c *OpenAIClient) Available() bool {
	return c.apiKey != "" || c.baseURL != openAIEndpoint
}

// callAPI sends a prompt to the chat completions API and returns the text response.
func (c *OpenAIClient) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIChatRequest{
		Model:    c.model,
		Messages: []openAIChatMessage{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API (status %d)", resp.StatusCode)
	}

	return apiResp.Choices[0].Message.Content, nil
}
