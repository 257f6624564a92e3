// Package extractor turns normalized page text into structured concert events
// through a chat-completion language model.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"gigsync/internal/config"
	"gigsync/internal/logger"
)

// Client errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrEmptyCompletion      = errors.New("completion has no choices")
)

// ChatClient sends one chat completion request and returns the message content.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Ensure OpenAIClient implements ChatClient.
var _ ChatClient = (*OpenAIClient)(nil)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the provider for schema-constrained JSON output.
type ResponseFormat struct {
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
	Type       string      `json:"type"`
}

// JSONSchema names the schema the output must follow.
type JSONSchema struct {
	Schema map[string]any `json:"schema"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
}

// ChatRequest is the chat completion request body.
type ChatRequest struct {
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIClient talks to an OpenAI compatible chat completion endpoint.
type OpenAIClient struct {
	http   *resty.Client
	logger *logger.Logger
}

// NewOpenAIClient creates a chat client from the extraction configuration.
func NewOpenAIClient(cfg *config.ExtractionConfig, log *logger.Logger) *OpenAIClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Endpoint, "/"))
	client.SetTimeout(cfg.Timeout())
	client.SetHeader("Content-Type", "application/json")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &OpenAIClient{
		http:   client,
		logger: log,
	}
}

// Complete sends req and returns the content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var out chatResponse

	var apiErr apiErrorResponse

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		if c.logger != nil {
			c.logger.Debug("chat completion rejected", "status", res.StatusCode(), "type", apiErr.Error.Type)
		}

		return "", fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, res.StatusCode(), apiErr.Error.Message)
	}

	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return out.Choices[0].Message.Content, nil
}
