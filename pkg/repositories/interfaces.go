// Package repositories defines interfaces for the external collaborators the
// profiling engine depends on: the remote query engine, the key-value
// metadata store, and the schema catalog.
package repositories

import (
	"context"

	"github.com/sdidier-dev/sageworks/pkg/models"
)

// QueryExecutor executes SQL against the remote, cost-metered query engine.
type QueryExecutor interface {
	// Execute runs the query and returns the full result set. The result
	// carries a scanned-cost hint used only for logging and metrics.
	Execute(ctx context.Context, sql string) (*models.TabularResult, error)
}

// MetadataStore is an opaque key-value store scoped by entity. It backs both
// the derived-artifact cache and entity tag/status storage. No
// transactionality is assumed.
type MetadataStore interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, entityID, key string) (string, bool, error)
	// Set stores the value under the entity-scoped key.
	Set(ctx context.Context, entityID, key, value string) error
	// Delete removes the entity-scoped key if present.
	Delete(ctx context.Context, entityID, key string) error
}

// SchemaProvider resolves the declared column schema for an entity. It is the
// source of truth query synthesis validates column names against.
type SchemaProvider interface {
	// ColumnTypes returns the ordered column name to declared type mapping.
	ColumnTypes(ctx context.Context, entityID string) (models.ColumnSchema, error)
}
