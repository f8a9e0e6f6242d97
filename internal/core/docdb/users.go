// Package docdb provides the allow-list collection interface.
package docdb

import (
	"context"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// UserFilter restricts the records returned by FetchRecords.
// Zero values match everything.
type UserFilter struct {
	Statuses []models.UserStatus
	Users    []string
}

// UsersCollection is the raw allow-list store. Caching and TTL handling are
// owned by the access gate on top of it.
type UsersCollection interface {
	// FetchRecords returns the records matching the filter.
	FetchRecords(ctx context.Context, filter *UserFilter) ([]*models.AllowListEntry, error)

	// InsertRecords adds new records. Records without an ID get one.
	InsertRecords(ctx context.Context, records []*models.AllowListEntry) error

	// UpdateRecords replaces the mutable fields of existing records, matched by ID.
	UpdateRecords(ctx context.Context, records []*models.AllowListEntry) error

	// EnsureIndexes creates necessary indexes for the collection.
	EnsureIndexes(ctx context.Context) error
}
