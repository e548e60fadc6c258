package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/inboxcal/internal/scheduler"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.GPT4o

// Config holds the OpenAI client configuration.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model overrides DefaultModel when set.
	Model string

	// BaseURL overrides the API endpoint, e.g. for a compatible proxy.
	BaseURL string
}

// Client is a structured-completion provider backed by the OpenAI chat
// completions API with JSON-schema constrained output. It implements
// scheduler.StructuredCompleter.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required; set OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string {
	return c.model
}

// CompleteStructured performs a single chat completion constrained to the
// request's JSON schema and unmarshals the response into out. A response
// that cannot be unmarshaled, even after repair, surfaces as a
// *scheduler.ParseError carrying the raw model text.
func (c *Client) CompleteStructured(ctx context.Context, req scheduler.CompletionRequest, out any) error {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserText},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: req.Schema,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion %s: %w", req.Name, err)
	}
	if len(resp.Choices) == 0 {
		return &scheduler.ParseError{
			Err: fmt.Errorf("completion %s returned no choices", req.Name),
		}
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("model response received",
		slog.String("schema", req.Name),
		slog.Int("length", len(content)),
	)
	return decodeInto(content, out)
}

// decodeInto unmarshals model output, falling back to a jsonrepair pass for
// responses that are almost-but-not-quite JSON.
func decodeInto(content string, out any) error {
	firstErr := json.Unmarshal([]byte(content), out)
	if firstErr == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	return &scheduler.ParseError{
		Raw: content,
		Err: firstErr,
	}
}
