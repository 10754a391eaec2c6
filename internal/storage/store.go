// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Collections used by the application.
const (
	CollectionUsers         = "users"
	CollectionFunds         = "funds"
	CollectionTransactions  = "transactions"
	CollectionNotifications = "notifications"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidField is returned when a query names a field that is not a plain
// identifier.
var ErrInvalidField = errors.New("invalid field name")

// Document is a schemaless JSON object. The "id" key holds the document id.
type Document map[string]any

// ID returns the document's id or "".
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// DocumentStore is a generic document database.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// DynamoDB) without changing the layers above it.
type DocumentStore interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Query returns every document whose top-level field equals value or,
	// when the field holds an array, contains value. Results are in
	// insertion order where the backend can provide it.
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Create stores doc and returns its id. A missing id is generated.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Update merges partial into the stored document's top-level fields.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, partial Document) error

	// Delete removes a document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Close releases any resources held by the store.
	Close() error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether field can be used in a query.
func ValidField(field string) bool {
	return fieldPattern.MatchString(field)
}
