package domain

import "time"

type SessionID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once created; a session's messages are append-only
// and kept in chronological order.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Adventure is one ongoing story session. Values are copied on every store
// read and write, so holders of an Adventure never observe later mutations.
type Adventure struct {
	SessionID          SessionID
	Title              string
	LastMessagePreview string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Messages           []Message
	// ConversationLoaded reports whether the full message history has been
	// fetched; sessions arrive from the list endpoint without one.
	ConversationLoaded bool
	// ExchangeInFlight gates sends per session, not globally.
	ExchangeInFlight bool
	Media            MediaState
}

func (a Adventure) Clone() Adventure {
	clone := a
	if a.Messages != nil {
		clone.Messages = make([]Message, len(a.Messages))
		copy(clone.Messages, a.Messages)
	}
	return clone
}

type StoryPreferences struct {
	Genre          string
	Character      string
	WorldAdditions string
	Actions        string
}
