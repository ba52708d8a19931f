// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/dischat/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	DefaultInstantURL = "https://api.duckduckgo.com/"
	DefaultProxyURL   = "https://api.allorigins.win/raw"
	DefaultResultsURL = "https://html.duckduckgo.com/html/"

	// MaxInstantTopics caps related topics taken from the instant answer.
	MaxInstantTopics = 3

	// DefaultMaxResults caps results scraped from the results page.
	DefaultMaxResults = 5

	defaultUserAgent = "Mozilla/5.0 (compatible; DisChat/1.0)"

	// SECURITY: bound scraped pages to prevent memory exhaustion.
	maxPageSize = 5 * 1024 * 1024
)

// Config selects the endpoints and limits of a Gateway.
type Config struct {
	InstantURL string
	// ProxyURL fronts ResultsURL; the target goes in its "url" parameter.
	// Empty fetches ResultsURL directly.
	ProxyURL   string
	ResultsURL string

	// Timeout bounds each HTTP call. Zero means no client timeout.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls. Zero or less disables it.
	RequestsPerSecond float64

	MaxResults int
	UserAgent  string
}

// DefaultConfig returns the public DuckDuckGo endpoints.
func DefaultConfig() Config {
	return Config{
		InstantURL:        DefaultInstantURL,
		ProxyURL:          DefaultProxyURL,
		ResultsURL:        DefaultResultsURL,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 1,
		MaxResults:        DefaultMaxResults,
		UserAgent:         defaultUserAgent,
	}
}

// =============================================================================
// GATEWAY
// =============================================================================

// Searcher is the lookup the orchestrator depends on.
type Searcher interface {
	Search(ctx context.Context, query string) []model.SearchResult
}

// Gateway performs searches against the configured endpoints.
type Gateway struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
}

// New creates a Gateway. Empty config fields take their defaults.
func New(cfg Config) *Gateway {
	def := DefaultConfig()
	if cfg.InstantURL == "" {
		cfg.InstantURL = def.InstantURL
	}
	if cfg.ResultsURL == "" {
		cfg.ResultsURL = def.ResultsURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Gateway{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Search returns results for query, or an empty slice. It never fails.
func (g *Gateway) Search(ctx context.Context, query string) []model.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.SearchResult{}
	}
	start := time.Now()

	results, err := g.instant(ctx, query)
	if err != nil {
		log.Debug().Err(err).Str("query", query).Msg("instant answer failed, trying results page")
	}
	source := "instant"
	if len(results) == 0 {
		source = "scrape"
		results, err = g.scrape(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("web search failed")
			results = nil
		}
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	log.Debug().
		Str("query", query).
		Str("source", source).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("web search")
	return results
}

func (g *Gateway) wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// instant queries the instant-answer API.
func (g *Gateway) instant(ctx context.Context, query string) ([]model.SearchResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	var answer instantAnswer
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("format", "json").
		SetQueryParam("no_html", "1").
		SetQueryParam("skip_disambig", "1").
		ForceContentType("application/json").
		SetResult(&answer).
		Get(g.cfg.InstantURL)
	if err != nil {
		return nil, fmt.Errorf("instant answer request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("instant answer HTTP %d", resp.StatusCode())
	}
	return answer.results(), nil
}

// scrape fetches and parses the rendered results page.
func (g *Gateway) scrape(ctx context.Context, query string) ([]model.SearchResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetDoNotParseResponse(true).
		Get(g.pageURL(query))
	if err != nil {
		return nil, fmt.Errorf("results page request: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("results page HTTP %d", resp.StatusCode())
	}
	return parseResultsPage(io.LimitReader(body, maxPageSize), g.cfg.MaxResults)
}

// pageURL builds the results page address, wrapped in the proxy when set.
func (g *Gateway) pageURL(query string) string {
	target := g.cfg.ResultsURL + "?q=" + url.QueryEscape(query)
	if g.cfg.ProxyURL == "" {
		return target
	}
	return g.cfg.ProxyURL + "?url=" + url.QueryEscape(target)
}
