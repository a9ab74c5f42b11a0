package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0006, Down0006)
}

func Up0006(ctx context.Context, tx *sql.Tx) error {
	statements := []statement{
		{query: `
CREATE FUNCTION touch_updated_at()
RETURNS TRIGGER AS $$
BEGIN
NEW.updated_at = current_timestamp;
RETURN NEW;
END;
$$ language 'plpgsql';
`},
	}

	for _, table := range []string{
		"contest", "round", "problem", "test_case", "mcq_test", "submission", "config_entry",
	} {
		statements = append(statements, statement{
			query: `CREATE TRIGGER touch_` + table + `_updated_at BEFORE UPDATE ON ` + table + `
FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`,
		})
	}

	return execStatements(ctx, tx, statements...)
}

func Down0006(ctx context.Context, tx *sql.Tx) error {
	statements := []statement{}
	for _, table := range []string{
		"contest", "round", "problem", "test_case", "mcq_test", "submission", "config_entry",
	} {
		statements = append(statements, statement{
			query: `DROP TRIGGER touch_` + table + `_updated_at ON ` + table + `;`,
		})
	}
	statements = append(statements, statement{query: `DROP FUNCTION touch_updated_at();`})

	return execStatements(ctx, tx, statements...)
}
