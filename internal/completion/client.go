// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marcusdavidalo/arda/internal/model"
)

// =============================================================================
// FIXED REQUEST PARAMETERS
// =============================================================================

const (
	// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// Model is the hosted model every request uses.
	Model = "llama3-70b-8192"

	Temperature float32 = 0.5
	MaxTokens           = 768
	TopP        float32 = 0.75

	// DefaultTimeout bounds a whole request, including a streamed body.
	DefaultTimeout = 2 * time.Minute
)

// Persona is the system message sent first on every request.
const Persona = "You will now act and introduce yourself as Arda, A general purpose assistant " +
	"running on llama3-70b-8192 model via GROQ on Marcus David Alo's portfolio website"

// Greeting is the assistant message sent between the history and the new
// user message.
const Greeting = "Hello! I'm your Programming Assistant. I am using the llama3-70b-8192 model " +
	"via GROQ. How may I assist you with your code today?"

// Disclaimer is shown next to the input to set expectations about replies.
const Disclaimer = "Please Note: This AI Assistant is continuously being refined and may " +
	"occasionally provide inaccurate details about my background and professional " +
	"endeavors. Your understanding is appreciated."

var tracer = otel.Tracer("github.com/marcusdavidalo/arda/internal/completion")

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	// APIKey authenticates against the endpoint. Required.
	APIKey string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// Timeout overrides DefaultTimeout.
	Timeout time.Duration
}

// Client sends chat completion requests.
type Client struct {
	api        *openai.Client
	configured bool
	baseURL    string
}

// NewClient creates a client. A missing API key is reported by the first
// request as ErrNotConfigured.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = baseURL
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		configured: strings.TrimSpace(cfg.APIKey) != "",
		baseURL:    baseURL,
	}
}

// IsConfigured reports whether an API key was provided.
func (c *Client) IsConfigured() bool {
	return c.configured
}

// BaseURL returns the endpoint base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUESTS
// =============================================================================

// Complete sends history plus text and returns the assistant reply. An
// empty choice list yields an assistant turn with empty content.
func (c *Client) Complete(ctx context.Context, history []model.Turn, text string) (model.Turn, error) {
	ctx, span := c.startSpan(ctx, "completion.Complete", history)
	defer span.End()

	if !c.configured {
		return model.Turn{}, recordErr(span, ErrNotConfigured)
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, NewRequest(history, text, false))
	if err != nil {
		err = classify("chat completion", err)
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("completion request failed")
		return model.Turn{}, recordErr(span, err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	span.SetAttributes(
		attribute.Int("completion.choices", len(resp.Choices)),
		attribute.Int("completion.total_tokens", resp.Usage.TotalTokens),
	)
	log.Debug().
		Int("choices", len(resp.Choices)).
		Int("tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("completion received")

	return model.AssistantTurn(content), nil
}

// NewRequest builds the request for history plus text: persona, replayable
// history, greeting, then the new user message.
func NewRequest(history []model.Turn, text string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       Model,
		Messages:    BuildMessages(history, text),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		TopP:        TopP,
		Stream:      stream,
	}
}

// BuildMessages returns the message list sent for history plus text.
func BuildMessages(history []model.Turn, text string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+3)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: Persona,
	})
	for _, t := range history {
		if !t.Replayable() {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    t.Role.String(),
			Content: t.Content,
		})
	}
	msgs = append(msgs,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: Greeting},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text},
	)
	return msgs
}

// =============================================================================
// TRACING
// =============================================================================

func (c *Client) startSpan(ctx context.Context, name string, history []model.Turn) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("completion.model", Model),
		attribute.Int("completion.history_turns", len(history)),
	))
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
