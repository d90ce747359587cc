package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one line of the conversation log shown to the user.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is what the backend reports for GET /support/session/{id}.
type SessionRecord struct {
	SessionID  string         `json:"session_id"`
	CustomerID string         `json:"customer_id"`
	CreatedAt  string         `json:"created_at"`
	Status     string         `json:"status"`
	History    []HistoryEntry `json:"history"`
}

type HistoryEntry struct {
	Timestamp string `json:"ts"`
	From      string `json:"from"`
	Text      string `json:"text"`
}
