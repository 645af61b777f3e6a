// Package duckdb provides DuckDB-backed collaborator implementations, used
// for local profiling runs and integration tests.
package duckdb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// queryRepository implements repositories.QueryExecutor for DuckDB.
type queryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewQueryRepository creates a new DuckDB query executor.
func NewQueryRepository(db *sql.DB, logger zerolog.Logger) repositories.QueryExecutor {
	return &queryRepository{
		db:     db,
		logger: logger,
	}
}

// Execute runs the query and materializes the full result set.
func (r *queryRepository) Execute(ctx context.Context, query string) (*models.TabularResult, error) {
	r.logger.Debug().Str("query", query).Msg("Executing query")

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapQueryError(err, query)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to read result columns")
	}

	result := &models.TabularResult{Columns: columns, Rows: []models.Row{}}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to scan result row")
		}
		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, query)
	}

	r.logger.Info().
		Str("query", query).
		Int("rows", result.NumRows()).
		Dur("elapsed", time.Since(start)).
		Msg("Query successful")

	return result, nil
}

// normalize converts driver scan values to the scalar types the engine works with.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

// wrapQueryError maps database errors to the engine's error codes.
func wrapQueryError(err error, query string) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "syntax error"):
		return errors.Wrap(err, errors.CodeInvalidRequest, "SQL syntax error")
	case strings.Contains(errStr, "does not exist"):
		return errors.Wrap(err, errors.CodeNotFound, "object not found")
	case strings.Contains(errStr, "permission denied"):
		return errors.Wrap(err, errors.CodePermissionDenied, "permission denied")
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "context deadline"):
		return errors.Wrap(err, errors.CodeDeadlineExceeded, "query timeout")
	default:
		return errors.Wrapf(err, errors.CodeQueryFailed, "query failed: %s", query)
	}
}
