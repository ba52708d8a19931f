// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/jeranaias/dischat/internal/logging"
	"github.com/jeranaias/dischat/internal/provider"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates no API key is set. It is returned before any
	// network call.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrEmptyRequest indicates a request without messages or model.
	ErrEmptyRequest = errors.New("empty completion request")
)

// ProviderError is a failed completion call. Message is the provider's own
// error text, or a generic failure line when the provider sent none.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error [%s] (HTTP %d): %s", e.Provider, e.Code, e.Status, e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Is matches any *ProviderError, so callers can use errors.Is(err, &ProviderError{}).
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)
	return ok
}

// GenericFailure is the message used when the provider reported no error text.
func GenericFailure(providerName string) string {
	return "Failed to get response from " + providerName
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part is one element of multi-part content: text or an image URL.
type Part struct {
	Text     string
	ImageURL string
}

// IsImage reports whether the part carries an image.
func (p Part) IsImage() bool {
	return p.ImageURL != ""
}

// Message is one chat message. When Parts is non-empty it is sent as
// multi-part content and Content is ignored.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// TextPart builds a text content part.
func TextPart(text string) Part { return Part{Text: text} }

// ImagePart builds an image content part from a data URL.
func ImagePart(dataURL string) Part { return Part{ImageURL: dataURL} }

// Request is a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

func (r Request) toOpenAI() openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		out := openai.ChatCompletionMessage{Role: m.Role}
		if len(m.Parts) == 0 {
			out.Content = m.Content
		} else {
			out.MultiContent = make([]openai.ChatMessagePart, 0, len(m.Parts))
			for _, p := range m.Parts {
				if p.IsImage() {
					out.MultiContent = append(out.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL},
					})
					continue
				}
				out.MultiContent = append(out.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		}
		msgs = append(msgs, out)
	}
	return openai.ChatCompletionRequest{
		Model:       r.Model,
		Messages:    msgs,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Completer is the one call the orchestrator and search packages need.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options tunes a Client.
type Options struct {
	// Referer and AppName are sent by providers that attribute traffic.
	Referer string
	AppName string

	// BaseURL overrides the provider's API root.
	BaseURL string

	// HTTPClient overrides the transport. Provider headers are still added.
	HTTPClient *http.Client
}

// Client performs completions against one provider.
type Client struct {
	provider *provider.Provider
	apiKey   string
	api      *openai.Client
}

// New creates a client for p authenticated with apiKey. An empty key yields
// a client whose Complete always returns ErrNotConfigured.
func New(p *provider.Provider, apiKey string, opts Options) *Client {
	apiKey = strings.TrimSpace(apiKey)

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(p.BaseURL, "/")
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}

	base := http.DefaultTransport
	timeout := time.Duration(0)
	if opts.HTTPClient != nil {
		if opts.HTTPClient.Transport != nil {
			base = opts.HTTPClient.Transport
		}
		timeout = opts.HTTPClient.Timeout
	}
	cfg.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:    base,
			headers: extraHeaders(p, provider.HeaderOptions{Referer: opts.Referer, AppName: opts.AppName}),
		},
	}

	return &Client{
		provider: p,
		apiKey:   apiKey,
		api:      openai.NewClientWithConfig(cfg),
	}
}

// extraHeaders returns the provider headers go-openai does not set itself.
func extraHeaders(p *provider.Provider, opts provider.HeaderOptions) http.Header {
	h := p.Headers("", opts)
	h.Del("Content-Type")
	h.Del("Authorization")
	return h
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() *provider.Provider {
	return c.provider
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint identifies the key in logs without exposing it.
func (c *Client) KeyFingerprint() string {
	return logging.Fingerprint(c.apiKey)
}

// Complete sends req and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if req.Model == "" || len(req.Messages) == 0 {
		return "", ErrEmptyRequest
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req.toOpenAI())
	duration := time.Since(start)
	if err != nil {
		perr := c.convertError(err)
		// SECURITY: log the key fingerprint only.
		log.Debug().
			Str("provider", c.provider.Name).
			Str("model", req.Model).
			Str("key", c.KeyFingerprint()).
			Dur("duration", duration).
			Err(perr).
			Msg("completion failed")
		return "", perr
	}

	log.Debug().
		Str("provider", c.provider.Name).
		Str("model", req.Model).
		Int("tokens", resp.Usage.TotalTokens).
		Dur("duration", duration).
		Msg("completion ok")

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.provider.Name, Status: http.StatusOK, Message: GenericFailure(c.provider.Name)}
	}
	return resp.Choices[0].Message.Content, nil
}

// convertError maps go-openai errors onto ProviderError. Context errors are
// passed through untouched.
func (c *Client) convertError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	name := c.provider.Name

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = GenericFailure(name)
		}
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &ProviderError{Provider: name, Status: apiErr.HTTPStatusCode, Code: code, Message: msg}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: name, Status: reqErr.HTTPStatusCode, Message: GenericFailure(name)}
	}

	return fmt.Errorf("%s request failed: %w", name, err)
}
