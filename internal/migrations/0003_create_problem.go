package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0003, Down0003)
}

func Up0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE TABLE problem (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	round_id UUID NOT NULL UNIQUE REFERENCES round (id),
	title TEXT NOT NULL,
	grading_kind TEXT NOT NULL,
	language_id INT NOT NULL DEFAULT 0,
	cpu_time_limit_secs DOUBLE PRECISION NOT NULL DEFAULT 2,
	memory_limit_kb INT NOT NULL DEFAULT 128000,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`},
		statement{query: `
CREATE TABLE test_case (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	problem_id UUID NOT NULL REFERENCES problem (id),
	position INT NOT NULL DEFAULT 0,
	stdin TEXT NOT NULL DEFAULT '',
	expected_output TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`},
		statement{query: `CREATE INDEX idx_test_case_problem_id ON test_case (problem_id);`},
		statement{query: `
CREATE TABLE mcq_test (
	id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
	round_id UUID NOT NULL UNIQUE REFERENCES round (id),
	title TEXT NOT NULL,
	question_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`},
	)
}

func Down0003(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TABLE mcq_test;`},
		statement{query: `DROP TABLE test_case;`},
		statement{query: `DROP TABLE problem;`},
	)
}
