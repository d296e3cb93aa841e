package database

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var Schema string

// Migrate applies the embedded schema. Every statement is IF NOT EXISTS,
// so re-running against an existing database is a no-op.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
