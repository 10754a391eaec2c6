// Package postgres provides a PostgreSQL-backed implementation of the
// storage.DocumentStore interface using jsonb bodies.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/fundflow/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    body JSONB NOT NULL,
    seq BIGSERIAL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_body ON documents USING GIN (body jsonb_path_ops);
`

// Ensure Store implements storage.DocumentStore
var _ storage.DocumentStore = (*Store)(nil)

// Store implements storage.DocumentStore on a pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// New connects to dsn and creates the documents table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

// Get retrieves a document by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var body []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return decode(body)
}

// Query matches with jsonb containment: {field: value} for scalars and
// {field: [value]} for arrays. Both forms can use the GIN index.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	if !storage.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidField, field)
	}
	scalar, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	array, err := json.Marshal(map[string]any{field: []any{value}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT body FROM documents
		WHERE collection = $1 AND (body @> $2::jsonb OR body @> $3::jsonb)
		ORDER BY seq`,
		collection, string(scalar), string(array),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Document, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Create inserts a document, generating an id when none is set.
func (s *Store) Create(ctx context.Context, collection string, doc storage.Document) (string, error) {
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
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(encoded),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

// Update merges partial into the body with the jsonb || operator, which
// replaces top-level keys.
func (s *Store) Update(ctx context.Context, collection, id string, partial storage.Document) error {
	patch := make(storage.Document, len(partial))
	for k, v := range partial {
		if k != "id" {
			patch[k] = v
		}
	}
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	tag, err := s.Pool.Exec(ctx,
		`UPDATE documents SET body = body || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	return nil
}

func decode(body []byte) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
