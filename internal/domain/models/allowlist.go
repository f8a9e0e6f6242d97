package models

import "time"

// UserStatus is the allow-list status of a sender.
type UserStatus string

const (
	// StatusAllowed grants access to the assistant.
	StatusAllowed UserStatus = "allowed"
	// StatusPending marks a sender waiting for an operator decision.
	StatusPending UserStatus = "pending"
	// StatusForbidden denies access permanently.
	StatusForbidden UserStatus = "forbidden"
)

// AllowListEntry is a record of the external allow-list store.
type AllowListEntry struct {
	ID            string     `json:"id" bson:"_id"`
	User          string     `json:"user" bson:"user"`
	Status        UserStatus `json:"status" bson:"status"`
	Domain        string     `json:"domain,omitempty" bson:"domain,omitempty"`
	QuestionCount int        `json:"questionCount" bson:"questionCount"`
	LastActivity  *time.Time `json:"lastActivity,omitempty" bson:"lastActivity,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedAt"`
}
