package shared

import (
	"context"

	"github.com/google/uuid"
)

// Change operations broadcast over the change stream
const (
	ChangeOpInsert = "insert"
	ChangeOpUpdate = "update"
	ChangeOpDelete = "delete"
)

// ChangeNotifier broadcasts row-level change notifications so that other
// instances can invalidate caches and push updates to clients.
type ChangeNotifier interface {
	// NotifyChange publishes a change notification for the given table and row
	NotifyChange(ctx context.Context, table, op string, id uuid.UUID) error
}
