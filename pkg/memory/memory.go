// Package memory stores per-session conversation history with best-effort
// persistence and rolling summarization.
package memory

import "time"

// Role values for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: unixSeconds(),
	}
}

// Session holds the conversation state for one session.
type Session struct {
	SessionID string  `json:"session_id"`
	Turns     []Turn  `json:"turns"`
	Summary   string  `json:"summary"`
	CreatedAt float64 `json:"created_at"`
	UpdatedAt float64 `json:"updated_at"`
}

func unixSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
