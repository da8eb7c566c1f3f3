package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the minimal chat-completion surface the pipeline needs.
// Implementations return the raw assistant text.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider hands out a configured Client, or nil when no credential is
// set. Callers that get nil must skip the LLM stage without treating it
// as an error.
type Provider struct {
	client Client
}

// NewProvider builds a Provider from credentials. An empty apiKey
// yields a provider with no client.
func NewProvider(apiKey, baseURL, model string) *Provider {
	if apiKey == "" {
		return &Provider{}
	}
	return &Provider{client: NewChatClient(apiKey, baseURL, model)}
}

// NewProviderWith wraps an existing client, for tests and custom
// backends.
func NewProviderWith(c Client) *Provider {
	return &Provider{client: c}
}

// Client returns the configured client or nil.
func (p *Provider) Client() Client {
	if p == nil {
		return nil
	}
	return p.client
}

// Configured reports whether a client is available.
func (p *Provider) Configured() bool {
	return p != nil && p.client != nil
}

// ChatClient talks to an OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	http    *resty.Client
	baseURL string
	model   string
}

func NewChatClient(apiKey, baseURL, model string) *ChatClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")
	return &ChatClient{http: client, baseURL: baseURL, model: model}
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ChatClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: 0.2,
		}).
		SetResult(&out).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("chat completion: %s (status %d)", out.Error.Message, resp.StatusCode())
		}
		return "", fmt.Errorf("chat completion: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}
