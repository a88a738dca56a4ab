// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:   "key-123",
		EngineID: "cx-456",
		BaseURL:  server.URL + "/customsearch/v1",
		Burst:    100,
	})
}

func TestSearch_ReturnsItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		q := r.URL.Query()
		if q.Get("key") != "key-123" || q.Get("cx") != "cx-456" || q.Get("q") != "golang generics" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[
			{"title":"Generics","link":"https://go.dev/doc/tutorial/generics","snippet":"A tutorial."},
			{"title":"Blog","link":"https://go.dev/blog/intro-generics","snippet":"","htmlSnippet":"An <b>introduction</b>\n to generics"}
		]}`)
	})

	items := client.Search(context.Background(), "golang generics")
	require.Len(t, items, 2)
	assert.Equal(t, Item{Title: "Generics", Link: "https://go.dev/doc/tutorial/generics", Snippet: "A tutorial."}, items[0])
	assert.Equal(t, "An introduction to generics", items[1].Snippet)
}

func TestSearch_NoItemsField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"searchInformation":{"totalResults":"0"}}`)
	})

	items := client.Search(context.Background(), "x")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSearch_FailuresYieldEmpty(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"forbidden": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"message":"quota"}}`)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"items":[`)
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			items := newTestClient(t, handler).Search(context.Background(), "x")
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestSearch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{APIKey: "k", EngineID: "cx", BaseURL: baseURL})
	items := client.Search(context.Background(), "x")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSearch_NotConfiguredSkipsRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	assert.False(t, client.IsConfigured())
	assert.Empty(t, client.Search(context.Background(), "x"))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearch_RateLimitDelaysRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"items":[{"title":"t","link":"l","snippet":"s"}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:        "k",
		EngineID:      "cx",
		BaseURL:       server.URL,
		RatePerSecond: 20,
		Burst:         1,
	})

	start := time.Now()
	for _, q := range []string{"a", "b", "c"} {
		assert.Len(t, client.Search(context.Background(), q), 1, "query %q", q)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSearch_RateLimitWaitHonoursContext(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"items":[{"title":"t","link":"l","snippet":"s"}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:        "k",
		EngineID:      "cx",
		BaseURL:       server.URL,
		RatePerSecond: 0.001,
		Burst:         1,
	})

	assert.Len(t, client.Search(context.Background(), "a"), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Empty(t, client.Search(ctx, "b"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFormatMarkdown(t *testing.T) {
	md := FormatMarkdown("go", []Item{
		{Title: "Go", Link: "https://go.dev", Snippet: "The Go language"},
		{Link: "https://pkg.go.dev"},
	})
	assert.Contains(t, md, `### Search results for "go"`)
	assert.Contains(t, md, "1. [Go](https://go.dev)\n   The Go language\n")
	assert.Contains(t, md, "2. [https://pkg.go.dev](https://pkg.go.dev)\n")

	assert.Contains(t, FormatMarkdown("none", nil), "_No results._")
}
