package completion

import "fmt"

// UpstreamError reports a non-success response from a completion backend,
// either an HTTP status outside 2xx or an explicit error payload in the
// stream. Recovered locally by the caller; the failing agent abstains.
type UpstreamError struct {
	Status  int    // HTTP status, 0 when the error arrived in-stream
	Message string // response body or error payload
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// StreamError reports a malformed or interrupted event stream. Isolated
// malformed lines are resynced over and never produce this error; it is
// reserved for streams dropped before completion.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports missing or invalid backend setup, such as an
// absent API key. Surfaced once and not retried.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Detail)
}
