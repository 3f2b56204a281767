package models

import "encoding/json"

// ChatTurn is a single message in a conversation as sent by the client.
// Content is either a JSON string or an array of ContentPart objects; it is
// kept raw so the relay can forward it to the gateway byte-for-byte.
type ChatTurn struct {
	Role    string          `json:"role"` // "user" or "assistant"
	Content json.RawMessage `json:"content"`
}

// ContentPart is one element of a multi-part message content array.
type ContentPart struct {
	Type     string `json:"type"` // "text" or "image_url"
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// Text returns the plain text of the turn: the content itself when it is a
// string, otherwise the first text part, otherwise "".
func (t ChatTurn) Text() string {
	if len(t.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(t.Content, &s); err == nil {
		return s
	}

	var parts []ContentPart
	if err := json.Unmarshal(t.Content, &parts); err == nil {
		for _, p := range parts {
			if p.Type == "text" {
				return p.Text
			}
		}
	}
	return ""
}

// TextTurn builds a plain string-content turn.
func TextTurn(role, text string) ChatTurn {
	content, _ := json.Marshal(text)
	return ChatTurn{Role: role, Content: content}
}

// UserPreferences are the profile fragments woven into the system prompt.
type UserPreferences struct {
	UserName string `json:"userName,omitempty"`
	Pronouns string `json:"pronouns,omitempty"`
}

// ChatRequest is the payload sent to the chat relay endpoint.
type ChatRequest struct {
	Messages         []ChatTurn       `json:"messages"`
	WebSearchEnabled bool             `json:"webSearchEnabled"`
	SystemContext    string           `json:"systemContext,omitempty"`
	UserPreferences  *UserPreferences `json:"userPreferences,omitempty"`
	IsCreator        bool             `json:"isCreator,omitempty"`
	TemperatureUnit  string           `json:"temperatureUnit,omitempty"` // "celsius" or "fahrenheit"
	LabContext       string           `json:"labContext,omitempty"`
	CloudPlusEnabled bool             `json:"cloudPlusEnabled,omitempty"`
}
