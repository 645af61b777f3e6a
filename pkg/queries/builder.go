// Package queries builds the SQL aggregate queries issued against the remote
// query engine. Builders validate every identifier against the known schema
// before assembling any SQL, so caller strings never reach the engine raw.
package queries

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/models"
)

// identifierPattern matches one plain SQL identifier segment.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Comparison operators accepted by Bound.
const (
	OpLess    = "<"
	OpGreater = ">"
)

// Sort orders accepted by Bound.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Builder synthesizes SQL for one table. Construction validates the table
// reference; every method validates its column arguments against the schema.
type Builder struct {
	table  string
	schema models.ColumnSchema
}

// NewBuilder creates a query builder for the given table reference and schema.
func NewBuilder(table string, schema models.ColumnSchema) (*Builder, error) {
	if err := validateTableRef(table); err != nil {
		return nil, err
	}
	for _, col := range schema {
		if !identifierPattern.MatchString(col.Name) {
			return nil, errors.New(errors.CodeInvalidRequest,
				fmt.Sprintf("schema column %q is not a valid identifier", col.Name))
		}
	}
	return &Builder{table: table, schema: schema}, nil
}

// validateTableRef accepts plain or dotted identifiers, with optional
// double-quoted segments ("db"."table").
func validateTableRef(table string) error {
	if table == "" {
		return errors.ErrInvalidTableRef
	}
	for _, segment := range strings.Split(table, ".") {
		trimmed := segment
		if strings.HasPrefix(segment, `"`) && strings.HasSuffix(segment, `"`) && len(segment) > 2 {
			trimmed = segment[1 : len(segment)-1]
		}
		if !identifierPattern.MatchString(trimmed) {
			return errors.ErrInvalidTableRef.WithDetail("table", table)
		}
	}
	return nil
}

func (b *Builder) checkColumns(columns []string) error {
	if len(columns) == 0 {
		return errors.New(errors.CodeInvalidRequest, "no columns given")
	}
	for _, col := range columns {
		if !b.schema.Contains(col) {
			return errors.ErrUnknownColumn.WithDetail("column", col)
		}
	}
	return nil
}

// DistinctCount builds a single-row query computing COUNT(DISTINCT col) per column.
func (b *Builder) DistinctCount(columns []string) (string, error) {
	if err := b.checkColumns(columns); err != nil {
		return "", err
	}
	exprs := make([]string, len(columns))
	for i, col := range columns {
		exprs[i] = fmt.Sprintf("COUNT(DISTINCT %s) AS %s", col, col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), b.table), nil
}

// NullCount builds a single-row query computing the null count per column.
func (b *Builder) NullCount(columns []string) (string, error) {
	if err := b.checkColumns(columns); err != nil {
		return "", err
	}
	exprs := make([]string, len(columns))
	for i, col := range columns {
		exprs[i] = fmt.Sprintf("COUNT(CASE WHEN %s IS NULL THEN 1 END) AS %s", col, col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), b.table), nil
}

// ZeroCount builds a single-row query computing the zero count per numeric
// column, aliased zero_values_<col>.
func (b *Builder) ZeroCount(columns []string) (string, error) {
	if err := b.checkColumns(columns); err != nil {
		return "", err
	}
	exprs := make([]string, len(columns))
	for i, col := range columns {
		exprs[i] = fmt.Sprintf("COUNT(CASE WHEN %s = 0 THEN 1 END) AS zero_values_%s", col, col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), b.table), nil
}

// QuartileAlias returns the result alias carrying one quartile of one column.
func QuartileAlias(column, quartile string) string {
	return column + "__" + quartile
}

// Quartiles builds a single-row query computing q1/median/q3 per numeric
// column via approx_percentile. Engines with exact continuous quantiles
// (linear interpolation) may substitute quantile_cont through the executor.
func (b *Builder) Quartiles(columns []string) (string, error) {
	if err := b.checkColumns(columns); err != nil {
		return "", err
	}
	var exprs []string
	for _, col := range columns {
		exprs = append(exprs,
			fmt.Sprintf("approx_percentile(%s, 0.25) AS %s", col, QuartileAlias(col, "q1")),
			fmt.Sprintf("approx_percentile(%s, 0.5) AS %s", col, QuartileAlias(col, "median")),
			fmt.Sprintf("approx_percentile(%s, 0.75) AS %s", col, QuartileAlias(col, "q3")),
		)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), b.table), nil
}

// ValueCounts builds a per-column distinct value count query, most frequent
// first, capped at limit values.
func (b *Builder) ValueCounts(column string, limit int) (string, error) {
	if err := b.checkColumns([]string{column}); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s, COUNT(*) AS count FROM %s GROUP BY %s ORDER BY count DESC, %s LIMIT %d",
		column, b.table, column, column, limit), nil
}

// RowCount builds the total row count query.
func (b *Builder) RowCount() string {
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", b.table)
}

// Bound builds a bounded range scan used for outlier discovery and preview
// rows: full projection, strict comparison, ordered toward the extreme.
func (b *Builder) Bound(column, op string, value float64, order string, limit int) (string, error) {
	if err := b.checkColumns([]string{column}); err != nil {
		return "", err
	}
	if op != OpLess && op != OpGreater {
		return "", errors.New(errors.CodeInvalidRequest, fmt.Sprintf("unsupported bound operator %q", op))
	}
	if order != OrderAsc && order != OrderDesc {
		return "", errors.New(errors.CodeInvalidRequest, fmt.Sprintf("unsupported sort order %q", order))
	}
	bound := strconv.FormatFloat(value, 'f', -1, 64)
	return fmt.Sprintf("SELECT * FROM %s WHERE %s %s %s ORDER BY %s %s LIMIT %d",
		b.table, column, op, bound, column, order, limit), nil
}

// EqualString builds a bounded equality scan for one categorical value.
// Single quotes in the value are doubled.
func (b *Builder) EqualString(column, value string, limit int) (string, error) {
	if err := b.checkColumns([]string{column}); err != nil {
		return "", err
	}
	escaped := strings.ReplaceAll(value, "'", "''")
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = '%s' LIMIT %d", b.table, column, escaped, limit), nil
}

// SelectAll builds the full table scan used when the source fits the sample.
func (b *Builder) SelectAll() string {
	return fmt.Sprintf("SELECT * FROM %s", b.table)
}

// BernoulliSample builds a probabilistic row sample at the given percentage.
// No LIMIT on purpose: a hard limit would bias toward physically-first rows,
// so the caller truncates the result instead.
func (b *Builder) BernoulliSample(percentage int) string {
	return fmt.Sprintf("SELECT * FROM %s TABLESAMPLE BERNOULLI(%d)", b.table, percentage)
}
