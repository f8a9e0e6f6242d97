package models

// MessageRole represents the role of a turn sent to the answer service.
type MessageRole string

const (
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a message from the assistant.
	RoleAssistant MessageRole = "assistant"
)

// Turn is one role-tagged message submitted to the answer service.
type Turn struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}
