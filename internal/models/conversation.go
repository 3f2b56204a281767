package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const DefaultConversationTitle = "New chat"

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a persisted conversation turn. Metadata holds widget payloads
// extracted from assistant replies (weather block, image gallery, AI image).
type Message struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TitleJob is queued on Redis after a conversation's first exchange so a
// worker can replace the placeholder title.
type TitleJob struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	FirstMessage   string    `json:"first_message"`
}
