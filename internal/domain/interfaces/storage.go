package interfaces

import (
	"context"
	"fmt"
)

// Row is one flat record as transmitted to the remote table store.
type Row map[string]any

// StoreError is a non-2xx response from the table store. It is logged
// with status and body and never retried within the same cycle.
type StoreError struct {
	StatusCode int
	Body       string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("table store error %d: %s", e.StatusCode, e.Body)
}

// TableStore is the remote REST table-store collaborator. Uniqueness is
// enforced server-side by the upsert key; callers never read-modify-write.
type TableStore interface {
	// Insert posts all rows in a single batch with insert-only semantics.
	// The whole batch fails on the server's first conflict. No-op on
	// empty input.
	Insert(ctx context.Context, table string, rows []Row) error

	// Upsert posts rows one by one with conflict resolution on key.
	// Row-level failures are logged and do not abort the remaining rows.
	Upsert(ctx context.Context, table, key string, rows []Row) error

	// DeleteAll removes every row of the table (keyed on a non-empty key
	// column), used before a full derived-table reinsert.
	DeleteAll(ctx context.Context, table, key string) error

	// Select reads up to limit rows from the table.
	Select(ctx context.Context, table string, limit int) ([]Row, error)
}
