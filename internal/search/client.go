// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Custom Search JSON API endpoint.
	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 15 * time.Second

	// maxResponseSize caps the response body read.
	maxResponseSize = 2 * 1024 * 1024
)

var tracer = otel.Tracer("github.com/marcusdavidalo/arda/internal/search")

// Item is one search result.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// response mirrors the subset of the API response that is used.
type response struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
	} `json:"items"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	APIKey   string
	EngineID string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	// RatePerSecond and Burst configure the local limiter. Zero values
	// mean 1 request per second with a burst of 5.
	RatePerSecond float64
	Burst         int
}

// Client performs web searches.
type Client struct {
	apiKey   string
	engineID string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a search client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// IsConfigured reports whether both credentials are set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.engineID != ""
}

// Search runs query and returns the result items in ranking order. Any
// failure yields an empty list.
func (c *Client) Search(ctx context.Context, query string) []Item {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.query_length", len(query)))

	items, err := c.search(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("query", query).Msg("web search failed")
		return []Item{}
	}

	span.SetAttributes(attribute.Int("search.results", len(items)))
	log.Debug().Str("query", query).Int("results", len(items)).Msg("web search completed")
	return items
}

func (c *Client) search(ctx context.Context, query string) ([]Item, error) {
	if !c.IsConfigured() {
		return nil, errors.New("search API key or engine ID not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "search rate limit")
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read search response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("search returned status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	items := make([]Item, 0, len(decoded.Items))
	for _, it := range decoded.Items {
		snippet := strings.TrimSpace(it.Snippet)
		if snippet == "" && it.HTMLSnippet != "" {
			snippet = htmlText(it.HTMLSnippet)
		}
		items = append(items, Item{
			Title:   it.Title,
			Link:    it.Link,
			Snippet: snippet,
		})
	}
	return items, nil
}

// htmlText extracts the visible text of an HTML fragment.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
