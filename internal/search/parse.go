// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jeranaias/dischat/internal/model"
)

// =============================================================================
// INSTANT ANSWER
// =============================================================================

const (
	instantFallbackTitle = "DuckDuckGo"
	instantFallbackURL   = "https://duckduckgo.com"
	relatedTopicTitle    = "Related Topic"
)

type instantAnswer struct {
	AbstractText   string         `json:"AbstractText"`
	AbstractSource string         `json:"AbstractSource"`
	AbstractURL    string         `json:"AbstractURL"`
	RelatedTopics  []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// results converts the answer: the abstract alone when present, else the
// first related topics. Topic groups are taken as-is.
func (a instantAnswer) results() []model.SearchResult {
	if a.AbstractText != "" {
		return []model.SearchResult{{
			Title:   orDefault(a.AbstractSource, instantFallbackTitle),
			URL:     orDefault(a.AbstractURL, instantFallbackURL),
			Snippet: a.AbstractText,
		}}
	}

	topics := a.RelatedTopics
	if len(topics) > MaxInstantTopics {
		topics = topics[:MaxInstantTopics]
	}
	out := make([]model.SearchResult, 0, len(topics))
	for _, t := range topics {
		title := relatedTopicTitle
		if t.Text != "" {
			title, _, _ = strings.Cut(t.Text, " - ")
		}
		out = append(out, model.SearchResult{
			Title:   title,
			URL:     orDefault(t.FirstURL, instantFallbackURL),
			Snippet: t.Text,
		})
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// =============================================================================
// RESULTS PAGE
// =============================================================================

// parseResultsPage extracts results from the DuckDuckGo HTML page. Only the
// first max result blocks are examined; blocks without a title link or
// snippet are skipped.
//
//	<div class="result">
//	  <h2 class="result__title"><a href="//duckduckgo.com/l/?uddg=URL">Title</a></h2>
//	  <a class="result__url">example.com/page</a>
//	  <a class="result__snippet">Snippet text</a>
//	</div>
func parseResultsPage(r io.Reader, max int) ([]model.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := []model.SearchResult{}
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= max {
			return false
		}
		titleEl := s.Find(".result__title a").First()
		snippetEl := s.Find(".result__snippet").First()
		if titleEl.Length() == 0 || snippetEl.Length() == 0 {
			return true
		}

		link := "#"
		if urlEl := s.Find(".result__url").First(); urlEl.Length() > 0 {
			link = strings.TrimSpace(urlEl.Text())
		} else if href, ok := titleEl.Attr("href"); ok && href != "" {
			link = orDefault(extractActualURL(href), href)
		}

		results = append(results, model.SearchResult{
			Title:   strings.TrimSpace(titleEl.Text()),
			URL:     link,
			Snippet: strings.TrimSpace(snippetEl.Text()),
		})
		return true
	})
	return results, nil
}

// extractActualURL unwraps DuckDuckGo's redirect link
// (//duckduckgo.com/l/?uddg=ENCODED). Direct http(s) links pass through.
func extractActualURL(ddgURL string) string {
	if strings.Contains(ddgURL, "uddg=") {
		if strings.HasPrefix(ddgURL, "//") {
			ddgURL = "https:" + ddgURL
		}
		parsed, err := url.Parse(ddgURL)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(ddgURL, "http://") || strings.HasPrefix(ddgURL, "https://") {
		return ddgURL
	}
	return ""
}
