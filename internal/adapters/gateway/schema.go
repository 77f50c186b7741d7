package gateway

import (
	"strings"
	"time"

	"github.com/bnema/tale-cli/internal/domain"
)

type storyInitRequest struct {
	Genre          string `json:"genre"`
	Character      string `json:"character"`
	WorldAdditions string `json:"world_additions"`
	Actions        string `json:"actions"`
}

type storyActionRequest struct {
	SessionID  string `json:"session_id"`
	UserAction string `json:"user_action"`
}

type storyResponse struct {
	SessionID    string `json:"session_id"`
	StoryContent string `json:"story_content"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
}

type sessionSummarySchema struct {
	SessionID            string `json:"session_id"`
	Title                string `json:"title"`
	MessageCount         int    `json:"message_count"`
	CreatedAt            string `json:"created_at"`
	LastUpdated          string `json:"last_updated"`
	WorldImageStatus     string `json:"world_image_status"`
	CharacterImageStatus string `json:"character_image_status"`
}

type sessionListResponse struct {
	Sessions      []sessionSummarySchema `json:"sessions"`
	TotalSessions int                    `json:"total_sessions"`
}

type messageSchema struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type sessionDetailResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []messageSchema `json:"messages"`
}

type imageStatusResponse struct {
	WorldStatus     string `json:"world_status"`
	CharacterStatus string `json:"character_status"`
}

type imageURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

type regenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func jobStateFromWire(value string) domain.JobState {
	state := domain.JobState(strings.ToLower(strings.TrimSpace(value)))
	if !state.Valid() {
		// An unknown status is not terminal; keep polling rather than
		// inventing a failure.
		return domain.JobPending
	}
	return state
}

// timestampLayouts covers RFC 3339 plus the zone-less ISO form the backend
// emits for session metadata.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed
		}
	}

	return time.Time{}
}
