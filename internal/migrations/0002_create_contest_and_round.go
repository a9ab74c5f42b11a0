package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0002, Down0002)
}

func Up0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE contest (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	name TEXT NOT NULL,
	year INT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	starts_at TIMESTAMP WITH TIME ZONE,
	ends_at TIMESTAMP WITH TIME ZONE,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	deleted_at TIMESTAMP WITH TIME ZONE
);
`},
		statement{query: `CREATE INDEX idx_contest_deleted_at ON contest (deleted_at);`},
		statement{query: `
CREATE TABLE round (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	contest_id UUID NOT NULL REFERENCES contest (id),
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'closed',
	starts_at TIMESTAMP WITH TIME ZONE NOT NULL,
	ends_at TIMESTAMP WITH TIME ZONE NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	deleted_at TIMESTAMP WITH TIME ZONE
);
`},
		statement{query: `CREATE INDEX idx_round_deleted_at ON round (deleted_at);`},
		statement{query: `CREATE INDEX idx_round_contest_id ON round (contest_id);`},
	)
}

func Down0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE round;`},
		statement{query: `DROP TABLE contest;`},
	)
}
