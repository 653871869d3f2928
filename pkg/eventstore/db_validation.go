package eventstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// validateTableExists checks that tableName is present so a missing
// migration fails loudly at startup instead of surfacing as an opaque
// SQL error on the first append.
func validateTableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables WHERE table_name = $1
		)
	`, tableName).Scan(&exists)
	if err != nil {
		return &StorageError{
			EventStoreError: EventStoreError{Op: "validateTableExists", Err: fmt.Errorf("check table %s: %w", tableName, err)},
			Resource:        "database",
		}
	}
	if !exists {
		return &TableStructureError{
			EventStoreError: EventStoreError{Op: "validateTableExists", Err: fmt.Errorf("required table %q does not exist", tableName)},
			TableName:       tableName,
			Issue:           "table not found; run cmd/migrate",
		}
	}
	return nil
}
