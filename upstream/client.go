// Package upstream is the proxy's client for the third-party LLM API. It
// speaks the OpenAI-compatible chat completions contract and normalizes the
// provider's SSE stream into the proxy's own framing, so the proxy's only
// jobs are hiding the API key and reshaping events.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sse "github.com/r3labs/sse/v2"

	"github.com/tailored-agentic-units/roundtable/completion"
	"github.com/tailored-agentic-units/roundtable/core/protocol"
)

const (
	defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"
	defaultModel   = "glm-4.5-airx"

	completionTimeout = 60 * time.Second
	suggestTimeout    = 8 * time.Second
)

// Client issues chat completion requests to the upstream provider. Safe for
// concurrent use; each call is an independent request.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the underlying http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an upstream client. An empty apiKey is allowed; calls on an
// unconfigured client fail with a ConfigurationError so the server can
// surface the missing setup instead of crashing at startup.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      defaultModel,
		httpClient: &http.Client{Timeout: completionTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Model returns the model used when a request does not name one.
func (c *Client) Model() string {
	return c.model
}

// chatRequest is the upstream request body.
type chatRequest struct {
	Model          string                 `json:"model"`
	Messages       []protocol.ChatMessage `json:"messages"`
	Stream         bool                   `json:"stream"`
	ResponseFormat *responseFormat        `json:"response_format,omitempty"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// streamChunk is one upstream SSE payload in the OpenAI delta shape.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// EmitFunc receives normalized stream events. Returning an error stops the
// stream, typically because the downstream client went away.
type EmitFunc func(event completion.StreamEvent) error

// Stream issues a streaming completion and forwards normalized events to
// emit. The upstream [DONE] marker and finish_reason both map to a single
// done event; malformed upstream lines are skipped. Transport and status
// failures are reported as a terminal error event rather than returned, so
// the caller can always complete the SSE response it already started.
func (c *Client) Stream(ctx context.Context, messages []protocol.ChatMessage, systemPrompt, model string, emit EmitFunc) error {
	if !c.Configured() {
		return &completion.ConfigurationError{Detail: "upstream API key is not set"}
	}

	body := chatRequest{
		Model:    c.pickModel(model),
		Messages: protocol.WithSystem(systemPrompt, messages),
		Stream:   true,
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return emit(completion.StreamEvent{Error: fmt.Sprintf("upstream request failed: %v", err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return emit(completion.StreamEvent{Error: fmt.Sprintf("upstream error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))})
	}

	reader := sse.NewEventStreamReader(resp.Body, 1024*1024)

	for {
		raw, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return emit(completion.StreamEvent{Done: true})
			}
			return emit(completion.StreamEvent{Error: fmt.Sprintf("upstream stream interrupted: %v", err)})
		}

		payload, ok := completion.EventData(raw)
		if !ok {
			continue
		}
		if strings.TrimSpace(payload) == "[DONE]" {
			return emit(completion.StreamEvent{Done: true})
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if err := emit(completion.StreamEvent{Text: choice.Delta.Content}); err != nil {
				return err
			}
		}
		if choice.FinishReason != "" {
			return emit(completion.StreamEvent{Done: true})
		}
	}
}

// Completions issues a non-streaming completion and returns the raw upstream
// response body, passed through verbatim by the proxy.
func (c *Client) Completions(ctx context.Context, messages []protocol.ChatMessage, systemPrompt, model string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, &completion.ConfigurationError{Detail: "upstream API key is not set"}
	}

	body := chatRequest{
		Model:    c.pickModel(model),
		Messages: protocol.WithSystem(systemPrompt, messages),
		Stream:   false,
	}
	return c.completions(ctx, body)
}

const suggestPromptFormat = `Based on the conversation below, suggest 3 short, relevant, and engaging replies for the user (at most 15 words each).

Conversation:
%s

Provide the output as JSON in the form: {"suggestions": ["reply 1", "reply 2", "reply 3"]}`

// SuggestedReplies asks the model for three short follow-up replies based on
// the most recent turns of the conversation. Only the last six entries are
// sent to bound token usage.
func (c *Client) SuggestedReplies(ctx context.Context, history []protocol.ChatMessage) ([]string, error) {
	if !c.Configured() {
		return nil, &completion.ConfigurationError{Detail: "upstream API key is not set"}
	}

	recent := history
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	var lines []string
	for _, msg := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}

	temp := 0.7
	body := chatRequest{
		Model: c.model,
		Messages: []protocol.ChatMessage{
			protocol.NewMessage(protocol.RoleUser, fmt.Sprintf(suggestPromptFormat, strings.Join(lines, "\n"))),
		},
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    &temp,
		MaxTokens:      100,
	}

	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	raw, err := c.completions(ctx, body)
	if err != nil {
		return nil, err
	}

	parsed, err := completion.ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(parsed.Content()), &out); err != nil {
		return nil, &completion.StreamError{Err: fmt.Errorf("unparseable suggestions payload: %w", err)}
	}
	return out.Suggestions, nil
}

// Profile is a generated persona outline for a new agent.
type Profile struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"systemPrompt"`
}

const profilePromptFormat = `Based on the user's initial request, create a persona for an AI agent. The persona should include a short, compelling name, a one-sentence description, and a system prompt defining its role and personality.

User request: %q

Provide the output as JSON in the form: {"name": "...", "description": "...", "systemPrompt": "..."}`

// AgentProfile generates a persona outline from an initial prompt.
func (c *Client) AgentProfile(ctx context.Context, initialPrompt string) (*Profile, error) {
	if !c.Configured() {
		return nil, &completion.ConfigurationError{Detail: "upstream API key is not set"}
	}

	body := chatRequest{
		Model: c.model,
		Messages: []protocol.ChatMessage{
			protocol.NewMessage(protocol.RoleUser, fmt.Sprintf(profilePromptFormat, initialPrompt)),
		},
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	raw, err := c.completions(ctx, body)
	if err != nil {
		return nil, err
	}

	parsed, err := completion.ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal([]byte(parsed.Content()), &profile); err != nil {
		return nil, &completion.StreamError{Err: fmt.Errorf("unparseable profile payload: %w", err)}
	}
	return &profile, nil
}

func (c *Client) completions(ctx context.Context, body chatRequest) (json.RawMessage, error) {
	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, &completion.StreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &completion.StreamError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &completion.UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.httpClient.Do(req)
}

func (c *Client) pickModel(model string) string {
	if model != "" {
		return model
	}
	return c.model
}
