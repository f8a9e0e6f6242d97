package models

import "time"

// ModeNoRAG disables retrieval in the answer service.
const ModeNoRAG = "norag"

// UserSession holds the per-sender conversation state.
type UserSession struct {
	Sender string `json:"sender"`
	// Model is the answer-service model selected for this sender.
	Model string `json:"model"`
	// Mode is the prompt mode (e.g. "rag", "norag").
	Mode string `json:"mode"`
	// WithHistory enables the rolling conversation window.
	WithHistory bool `json:"withHistory"`
	// HistoryDepth counts the turns exchanged in the current conversation.
	HistoryDepth int `json:"historyDepth"`
	// LastActivity is the time of the last successful non-reply exchange.
	LastActivity time.Time `json:"lastActivity"`
	// LastSources are the retrieval references of the last answer.
	LastSources []string `json:"lastSources,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SessionDefaults are applied to sessions created on first contact.
type SessionDefaults struct {
	Model       string
	Mode        string
	WithHistory bool
}

// NewUserSession creates a session for sender initialised from defaults.
func NewUserSession(sender string, defaults SessionDefaults) *UserSession {
	now := time.Now().UTC()
	return &UserSession{
		Sender:      sender,
		Model:       defaults.Model,
		Mode:        defaults.Mode,
		WithHistory: defaults.WithHistory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SourcesEnabled reports whether the current mode produces retrieval sources.
func (s *UserSession) SourcesEnabled() bool {
	return s.Mode != ModeNoRAG
}
