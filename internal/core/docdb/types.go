// Package docdb provides the document database type constants.
package docdb

import (
	"fmt"
	"strings"
)

// Type is the backend holding the allow-list.
type Type string

const (
	// TypeMongoDB is a MongoDB server.
	TypeMongoDB Type = "mongodb"
	// TypeCosmosDB is Azure Cosmos DB through its MongoDB API.
	TypeCosmosDB Type = "cosmosdb"
)

// ParseType validates a DOCDB_TYPE value, case-insensitively.
func ParseType(value string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(value))); t {
	case TypeMongoDB, TypeCosmosDB:
		return t, nil
	}
	return "", fmt.Errorf("unsupported docdb type: %q", value)
}

