// Package mongodb provides the allow-list collection implementation.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unifiedui/assistant-bot/internal/core/docdb"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// UsersCollectionName is the name of the allow-list collection.
const UsersCollectionName = "users"

// UsersCollection implements the docdb.UsersCollection interface for MongoDB.
type UsersCollection struct {
	users *mongo.Collection
}

var _ docdb.UsersCollection = (*UsersCollection)(nil)

// NewUsersCollection creates a new allow-list collection wrapper.
func NewUsersCollection(db *mongo.Database) *UsersCollection {
	return &UsersCollection{
		users: db.Collection(UsersCollectionName),
	}
}

// FetchRecords returns the records matching the filter.
func (c *UsersCollection) FetchRecords(ctx context.Context, filter *docdb.UserFilter) ([]*models.AllowListEntry, error) {
	cursor, err := c.users.Find(ctx, BuildUserFilter(filter), options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.AllowListEntry
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return records, nil
}

// InsertRecords inserts new allow-list records.
func (c *UsersCollection) InsertRecords(ctx context.Context, records []*models.AllowListEntry) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	documents := make([]interface{}, 0, len(records))
	for _, record := range records {
		if record.User == "" {
			return fmt.Errorf("user is required")
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		documents = append(documents, record)
	}

	if _, err := c.users.InsertMany(ctx, documents); err != nil {
		return fmt.Errorf("failed to insert users: %w", err)
	}

	return nil
}

// UpdateRecords updates existing records matched by ID. Last write wins.
func (c *UsersCollection) UpdateRecords(ctx context.Context, records []*models.AllowListEntry) error {
	now := time.Now().UTC()
	for _, record := range records {
		if record.ID == "" {
			return fmt.Errorf("record ID is required")
		}
		record.UpdatedAt = now

		_, err := c.users.UpdateOne(ctx, bson.M{"_id": record.ID}, BuildUserUpdate(record))
		if err != nil {
			return fmt.Errorf("failed to update user %s: %w", record.User, err)
		}
	}

	return nil
}

// EnsureIndexes creates necessary indexes for the allow-list collection.
func (c *UsersCollection) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}},
			Options: options.Index().SetName("idx_user").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "domain", Value: 1}},
			Options: options.Index().SetName("idx_domain"),
		},
	}

	if _, err := c.users.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	return nil
}

// BuildUserFilter converts a UserFilter into a MongoDB query.
func BuildUserFilter(filter *docdb.UserFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		query["status"] = bson.M{"$in": statuses}
	}

	if len(filter.Users) > 0 {
		query["user"] = bson.M{"$in": filter.Users}
	}

	return query
}

// BuildUserUpdate builds the $set document for a record update.
func BuildUserUpdate(record *models.AllowListEntry) bson.M {
	set := bson.M{
		"status":        record.Status,
		"domain":        record.Domain,
		"questionCount": record.QuestionCount,
		"updatedAt":     record.UpdatedAt,
	}
	if record.LastActivity != nil {
		set["lastActivity"] = *record.LastActivity
	}
	return bson.M{"$set": set}
}
