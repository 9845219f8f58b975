package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/askdesk/knowledge-assistant/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible chat/embeddings API (Azure OpenAI with
// an API-version query parameter, or any /v1-shaped gateway).
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string

	// RequestsPerSecond caps the outbound call rate across all operations.
	// Zero disables the limiter.
	RequestsPerSecond float64

	ResilienceExecutor *resilience.Executor
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("openai: base url is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    limiter,
		executor:   opts.ResilienceExecutor,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// CompleteChat runs one completion with the caller's token, temperature, and
// timeout budget. No retries: the caller treats failures as recoverable and
// degrades on its own.
func (c *Client) CompleteChat(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	request := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var response chatResponse
	if err := c.postJSON(ctx, "/chat/completions", request, &response, "chat"); err != nil {
		return "", err
	}
	return firstChoice(response)
}

// CompleteJSON asks for a strict JSON object response. Transient failures are
// retried through the resilience executor, so this is the right call for
// classification passes that can tolerate extra latency.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var response chatResponse
	call := func(ctx context.Context) error {
		response = chatResponse{}
		return c.postJSON(ctx, "/chat/completions", request, &response, "chat_json")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai_chat_json", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("chat_json", err)
	}
	return firstChoice(response)
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// embedBatchSize bounds the number of inputs per embeddings request so one
// large document does not produce oversized payloads.
const embedBatchSize = 10

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := embedRequest{Model: c.embedModel, Input: texts}
	var response embedResponse
	if err := c.postJSON(ctx, "/embeddings", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(response.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embed: vector index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai embed: empty result")
	}
	return vectors[0], nil
}

func firstChoice(response chatResponse) (string, error) {
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
