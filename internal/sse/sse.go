// Package sse owns both directions of the server-sent-events chat stream:
// formatting frames in the gateway's chat-completion delta shape, and
// reassembling a byte stream of such frames back into one message.
package sse

import "encoding/json"

// Frame is one parsed data event. The payload shape mirrors the gateway's
// streaming chat-completion chunks.
type Frame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// FormatFrame renders content as a single complete SSE data event.
func FormatFrame(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"delta": map[string]any{"content": content}},
		},
	})
	return "data: " + string(payload) + "\n\n"
}

// FormatDone renders the terminal sentinel event.
func FormatDone() string {
	return "data: [DONE]\n\n"
}

func parseFrame(payload []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
