package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0004, Down0004)
}

func Up0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE submission (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	problem_id UUID NOT NULL REFERENCES problem (id),
	team_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	source_code TEXT NOT NULL DEFAULT '',
	language_id INT NOT NULL DEFAULT 0,
	judged_by TEXT,
	score INT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	deleted_at TIMESTAMP WITH TIME ZONE
);
`},
		statement{query: `CREATE INDEX idx_submission_problem_id ON submission (problem_id);`},
		statement{query: `CREATE INDEX idx_submission_deleted_at ON submission (deleted_at);`},
	)
}

func Down0004(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE submission;`},
	)
}
