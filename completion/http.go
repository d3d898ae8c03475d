package completion

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
)

const (
	streamPath      = "/api/chat/stream"
	completionsPath = "/api/chat/completions"

	defaultTimeout = 120 * time.Second
)

// HTTPClient talks to the chat proxy over HTTP. The zero value is not usable;
// construct with NewHTTPClient.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for the proxy at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamChat implements Client. It posts the request with stream enabled and
// consumes the SSE response line by line. Malformed data lines are skipped;
// an in-stream error payload or a non-2xx status yields an UpstreamError; a
// stream dropped before completion yields a StreamError.
func (c *HTTPClient) StreamChat(ctx context.Context, req Request, onDelta DeltaFunc) (string, error) {
	req.Stream = true
	resp, err := c.post(ctx, streamPath, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var text strings.Builder
	reader := sse.NewEventStreamReader(resp.Body, 1024*1024)

	for {
		raw, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// EOF without a terminator still counts as completion:
				// the upstream closed the stream cleanly.
				return text.String(), nil
			}
			return text.String(), &StreamError{Err: err}
		}

		payload, ok := EventData(raw)
		if !ok {
			continue
		}
		if strings.TrimSpace(payload) == "[DONE]" {
			return text.String(), nil
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			// Isolated malformed event: resync on the next one.
			continue
		}

		switch {
		case event.Error != "":
			return text.String(), &UpstreamError{Message: event.Error}
		case event.Done:
			return text.String(), nil
		case event.Text != "":
			text.WriteString(event.Text)
			if onDelta != nil {
				onDelta(event.Text)
			}
		}
	}
}

// EventData extracts the data payload from one raw SSE event block as framed
// by sse.NewEventStreamReader. Multiple data lines are joined with a newline
// per the SSE format; ok is false for events carrying no data field at all
// (comments, retry hints, bare event names).
func EventData(raw []byte) (payload string, ok bool) {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// Chat implements Client with a non-streaming request.
func (c *HTTPClient) Chat(ctx context.Context, req Request) (string, error) {
	req.Stream = false
	resp, err := c.post(ctx, completionsPath, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &StreamError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	parsed, err := ParseResponse(body)
	if err != nil {
		return "", err
	}
	return parsed.Content(), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &StreamError{Err: err}
	}
	return resp, nil
}
