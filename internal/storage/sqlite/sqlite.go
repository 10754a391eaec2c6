// Package sqlite provides a SQLite-backed implementation of the
// storage.DocumentStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/fundflow/internal/storage"
)

// Ensure SQLiteStore implements storage.DocumentStore
var _ storage.DocumentStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.DocumentStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writers serialize on the file lock; wait instead of failing fast.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves a document by collection and id.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return decode(body)
}

// Query returns documents whose field equals value or, for array fields,
// contains it. json_each yields a single row for scalar fields, so one
// predicate covers both cases.
func (s *SQLiteStore) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	if !storage.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidField, field)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.body FROM documents d
		WHERE d.collection = ?
		  AND EXISTS (SELECT 1 FROM json_each(d.body, ?) j WHERE j.value = ?)
		ORDER BY d.created_at, d.rowid`,
		collection, "$."+field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Create inserts a document, generating an id when none is set.
func (s *SQLiteStore) Create(ctx context.Context, collection string, doc storage.Document) (string, error) {
	id := doc.ID()
	if id == "" {
		id = uuid.New().String()
	}

	body := make(storage.Document, len(doc)+1)
	for k, v := range doc {
		body[k] = v
	}
	body["id"] = id

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		collection, id, string(encoded), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

// Update merges partial into the stored body with json_patch. Nested objects
// are merged recursively and arrays are replaced.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, partial storage.Document) error {
	patch := make(storage.Document, len(partial))
	for k, v := range partial {
		if k == "id" {
			continue
		}
		patch[k] = v
	}
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET body = json_patch(body, ?), updated_at = ? WHERE collection = ? AND id = ?",
		string(encoded), time.Now().UnixNano(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return checkAffected(res, collection, id)
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return checkAffected(res, collection, id)
}

func checkAffected(res sql.Result, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return nil
}

func decode(body string) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
