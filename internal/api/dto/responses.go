// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// RequestID echoes the X-Request-ID of the failed request.
	RequestID string `json:"requestId,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// FeatureResponse describes a registered feature.
type FeatureResponse struct {
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	Kind        string   `json:"kind"`
	Triggers    []string `json:"triggers,omitempty"`
	Help        string   `json:"help,omitempty"`
	Advanced    bool     `json:"advanced"`
	DirectOnly  bool     `json:"directOnly"`
	NeedsAccess bool     `json:"needsAccess"`
	Active      bool     `json:"active"`
}

// ListFeaturesResponse represents the response for listing features.
type ListFeaturesResponse struct {
	Features     []FeatureResponse `json:"features"`
	ActiveGroups []string          `json:"activeGroups"`
}

// AllowListStatsResponse describes the cached allow-list snapshot.
type AllowListStatsResponse struct {
	Enabled     bool      `json:"enabled"`
	Allowed     int       `json:"allowed"`
	NotAllowed  int       `json:"notAllowed"`
	RefreshedAt time.Time `json:"refreshedAt"`
	Sessions    int       `json:"sessions"`
}

// UserStatusResponse describes the access status of a user.
type UserStatusResponse struct {
	User          string     `json:"user"`
	Allowed       bool       `json:"allowed"`
	Reason        string     `json:"reason,omitempty"`
	Status        string     `json:"status,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	QuestionCount int        `json:"questionCount"`
	LastActivity  *time.Time `json:"lastActivity,omitempty"`
}
