// Package nlu extracts structured data points from customer utterances
// using the OpenAI API.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/qualivoice/qualivoice/internal/models"
)

// Errors returned by the extraction client.
var (
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrAPIKeyNotSet      = errors.New("OPENAI_API_KEY not set")
)

// Analyzer extracts data points from one customer utterance given the
// conversation state the question was asked in.
type Analyzer interface {
	Analyze(ctx context.Context, state models.ConversationState, transcript string) (models.Extraction, error)
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChatAdapter adapts the OpenAI SDK client to the chatService interface.
type openAIChatAdapter struct {
	client openai.Client
}

func (a *openAIChatAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration applied by Option functions.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures the extraction client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for extraction.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI ChatCompletion service for data point extraction.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes an extraction client. The API key is taken from
// options or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("nlu.NewClient: created extraction client", "model", cfg.Model)
	return &Client{chat: &openAIChatAdapter{client: cli}, model: cfg.Model}, nil
}

// Analyze sends the utterance to the model with state scoped instructions and
// decodes the JSON object it returns. Numeric fields the model misses are
// backfilled with the regex parser for the amount bearing states.
func (c *Client) Analyze(ctx context.Context, state models.ConversationState, transcript string) (models.Extraction, error) {
	if strings.TrimSpace(transcript) == "" {
		return models.Extraction{}, models.ErrEmptyTranscript
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(state)),
			openai.UserMessage(transcript),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.Analyze: completion failed", "error", err, "state", state)
		return models.Extraction{}, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Extraction{}, ErrNoChoicesReturned
	}

	var extraction models.Extraction
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &extraction); err != nil {
		slog.Error("Client.Analyze: failed to decode extraction JSON", "error", err, "state", state)
		return models.Extraction{}, fmt.Errorf("failed to decode extraction: %w", err)
	}

	backfillNumeric(state, transcript, &extraction)

	slog.Debug("Client.Analyze: extraction complete", "state", state,
		"objection_detected", extraction.ObjectionDetected)
	return extraction, nil
}

// backfillNumeric fills amount fields from the regex parser when the model
// returned nothing for the state's expected numeric answer.
func backfillNumeric(state models.ConversationState, transcript string, e *models.Extraction) {
	switch state {
	case models.StateDebtAmount:
		if e.DebtAmount == nil {
			if amount, ok := ParseAmount(transcript); ok {
				e.DebtAmount = &amount
			}
		}
	case models.StateMonthlyPayment:
		if e.MonthlyPayment == nil {
			if amount, ok := ParseAmount(transcript); ok {
				e.MonthlyPayment = &amount
			}
		}
	case models.StateCardCount:
		if e.CardCount == nil {
			if count, ok := ParseCount(transcript); ok {
				e.CardCount = &count
			}
		}
	}
}
