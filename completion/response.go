package completion

import (
	"encoding/json"
	"fmt"
)

// Response is the non-streaming completion body in the OpenAI-compatible
// shape: the reply text lives at choices[0].message.content.
type Response struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// ParseResponse parses a non-streaming completion response from JSON bytes.
func ParseResponse(body []byte) (*Response, error) {
	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse completion response: %w", err)
	}
	return &response, nil
}

// Content returns the reply text, or an empty string when the response has
// no choices.
func (r *Response) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
