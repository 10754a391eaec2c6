package sqlite

import (
	"context"
	"database/sql"
)

// schema holds every collection in one table. Bodies are JSON text queried
// with the JSON1 functions.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    body TEXT NOT NULL CHECK (json_valid(body)),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_fund_id
    ON documents(collection, json_extract(body, '$.fundId'));
CREATE INDEX IF NOT EXISTS idx_documents_email
    ON documents(collection, json_extract(body, '$.email'));
CREATE INDEX IF NOT EXISTS idx_documents_recipient_id
    ON documents(collection, json_extract(body, '$.recipientId'));
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
