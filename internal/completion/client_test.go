// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/marcusdavidalo/arda/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float32 `json:"top_p"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newTestServer serves /v1/chat/completions with handler and returns a
// client pointed at it.
func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Timeout: 5 * time.Second,
	})
}

func jsonReply(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func decodeRequest(t *testing.T, r *http.Request) capturedRequest {
	t.Helper()
	var req capturedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return req
}

// =============================================================================
// COMPLETE
// =============================================================================

func TestComplete_ReturnsFirstChoice(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		jsonReply(t, w, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"hello"}},{"message":{"role":"assistant","content":"second"}}]}`)
	})

	turn, err := client.Complete(context.Background(), []model.Turn{model.UserTurn("hi")}, "and again")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, turn.Role)
	assert.Equal(t, "hello", turn.Content)
	assert.False(t, turn.Error)
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(t, w, http.StatusOK, `{"choices":[]}`)
	})

	turn, err := client.Complete(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, turn.Role)
	assert.Equal(t, "", turn.Content)
}

func TestComplete_RequestShape(t *testing.T) {
	var got capturedRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		jsonReply(t, w, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	history := []model.Turn{
		model.UserTurn("first question"),
		model.ErrorTurn(errors.New("timeout")),
		model.UserTurn("first question again"),
		model.AssistantTurn("first answer"),
	}
	_, err := client.Complete(context.Background(), history, "second question")
	require.NoError(t, err)

	assert.Equal(t, "llama3-70b-8192", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 0.0001)
	assert.Equal(t, 768, got.MaxTokens)
	assert.InDelta(t, 0.75, got.TopP, 0.0001)
	assert.False(t, got.Stream)

	type msg struct{ role, content string }
	want := []msg{
		{"system", Persona},
		{"user", "first question"},
		{"user", "first question again"},
		{"assistant", "first answer"},
		{"assistant", Greeting},
		{"user", "second question"},
	}
	require.Len(t, got.Messages, len(want))
	for i, w := range want {
		assert.Equal(t, w.role, got.Messages[i].Role, "message %d role", i)
		assert.Equal(t, w.content, got.Messages[i].Content, "message %d content", i)
	}
}

func TestComplete_NotConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	assert.False(t, client.IsConfigured())

	_, err := client.Complete(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, atomic.LoadInt32(&calls), "no request without an API key")
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`, ErrAuthFailed},
		{http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrRateLimited},
		{http.StatusNotFound, `{"error":{"message":"no such model"}}`, ErrModelNotFound},
		{http.StatusTooManyRequests, `not json`, ErrRateLimited},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				jsonReply(t, w, tc.status, tc.body)
			})

			_, err := client.Complete(context.Background(), nil, "hi")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestComplete_ServerErrorPropagates(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		jsonReply(t, w, http.StatusInternalServerError, `{"error":{"message":"upstream exploded"}}`)
	})

	_, err := client.Complete(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry")
}

func TestComplete_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Complete(ctx, nil, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestCompleteStream(t *testing.T) {
	var got capturedRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	turn, err := client.CompleteStream(context.Background(), nil, "hi", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)

	assert.True(t, got.Stream)
	assert.Equal(t, "Hello world", turn.Content)
	assert.Equal(t, model.RoleAssistant, turn.Role)
	assert.Equal(t, []string{"Hel", "lo", " world"}, deltas)
}

func TestCompleteStream_ErrorStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(t, w, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
	})

	_, err := client.CompleteStream(context.Background(), nil, "hi", nil)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

// =============================================================================
// MESSAGE BUILDING
// =============================================================================

func TestBuildMessages_EmptyHistory(t *testing.T) {
	msgs := BuildMessages(nil, "question")
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, Greeting, msgs[1].Content)
	assert.Equal(t, "question", msgs[2].Content)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.True(t, client.IsConfigured())

	trimmed := NewClient(Config{APIKey: "k", BaseURL: "http://example.test/v1/"})
	assert.True(t, strings.HasSuffix(trimmed.BaseURL(), "/v1"))
}

// =============================================================================
// TRACING
// =============================================================================

func TestComplete_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	before := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		jsonReply(t, w, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	})
	_, err := client.Complete(context.Background(), []model.Turn{model.UserTurn("a")}, "b")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	span := spans[len(spans)-1]
	assert.Equal(t, "completion.Complete", span.Name())

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, Model, attrs["completion.model"])
	assert.Equal(t, "1", attrs["completion.history_turns"])
}
