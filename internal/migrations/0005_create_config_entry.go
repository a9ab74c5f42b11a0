package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0005, Down0005)
}

func Up0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE config_entry (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	key TEXT NOT NULL UNIQUE,
	value TEXT NOT NULL DEFAULT '',
	scope TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	deleted_at TIMESTAMP WITH TIME ZONE
);
`},
		statement{query: `CREATE INDEX idx_config_entry_deleted_at ON config_entry (deleted_at);`},
	)
}

func Down0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE config_entry;`},
	)
}
