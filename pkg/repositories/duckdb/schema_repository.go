package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// schemaRepository implements repositories.SchemaProvider for DuckDB. The
// entity id is expected to resolve to a table name.
type schemaRepository struct {
	db     *sql.DB
	tables map[string]string
	logger zerolog.Logger
}

// NewSchemaRepository creates a schema provider resolving entity ids through
// the given id-to-table mapping.
func NewSchemaRepository(db *sql.DB, tables map[string]string, logger zerolog.Logger) repositories.SchemaProvider {
	return &schemaRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// ColumnTypes returns the ordered column name to declared type mapping.
func (r *schemaRepository) ColumnTypes(ctx context.Context, entityID string) (models.ColumnSchema, error) {
	table, ok := r.tables[entityID]
	if !ok {
		return nil, errors.ErrDataSourceNotFound.WithDetail("entity_id", entityID)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT column_name, data_type FROM information_schema.columns WHERE table_name = '%s' ORDER BY ordinal_position", table))
	if err != nil {
		return nil, wrapQueryError(err, "information_schema.columns")
	}
	defer rows.Close()

	var schema models.ColumnSchema
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to scan column metadata")
		}
		schema = append(schema, models.Column{Name: name, Type: mapDeclaredType(declared)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "information_schema.columns")
	}
	if len(schema) == 0 {
		return nil, errors.ErrDataSourceNotFound.WithDetail("table", table)
	}

	r.logger.Debug().Str("table", table).Int("columns", len(schema)).Msg("Resolved column schema")
	return schema, nil
}

// mapDeclaredType lowers DuckDB catalog type names onto the engine's
// allowlist vocabulary.
func mapDeclaredType(declared string) string {
	switch declared {
	case "TINYINT":
		return "tinyint"
	case "SMALLINT":
		return "smallint"
	case "INTEGER":
		return "int"
	case "BIGINT", "HUGEINT":
		return "bigint"
	case "FLOAT", "REAL":
		return "float"
	case "DOUBLE":
		return "double"
	case "VARCHAR", "TEXT":
		return "string"
	default:
		if len(declared) >= 7 && declared[:7] == "DECIMAL" {
			return "decimal"
		}
		return "string"
	}
}
