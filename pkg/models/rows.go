package models

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupColumn is the synthetic column holding the outlier group identifier.
const GroupColumn = "outlier_group"

// Row is one result row keyed by column name.
type Row map[string]interface{}

// Int64 reads a column as int64, converting the scalar types query engine
// drivers commonly hand back.
func (r Row) Int64(column string) (int64, error) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, fmt.Errorf("column %q not present in row", column)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("column %q has non-numeric value %T", column, v)
	}
}

// Float64 reads a column as float64.
func (r Row) Float64(column string) (float64, error) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, fmt.Errorf("column %q not present in row", column)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("column %q has non-numeric value %T", column, v)
	}
}

// Identity returns a stable key for full-row identity over the given columns.
// The outlier group tag is deliberately not part of the key.
func (r Row) Identity(columns []string) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		fmt.Fprintf(&b, "%v", r[col])
	}
	return b.String()
}

// TabularResult is the outcome of one remote query: ordered columns, rows,
// and a scanned-cost hint used only for logging and metrics.
type TabularResult struct {
	Columns      []string `json:"columns"`
	Rows         []Row    `json:"rows"`
	ScannedBytes int64    `json:"scanned_bytes,omitempty"`
}

// NumRows returns the number of rows in the result.
func (t *TabularResult) NumRows() int {
	return len(t.Rows)
}

// FirstRow returns the first row, or nil for an empty result.
func (t *TabularResult) FirstRow() Row {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// OutlierSet is the detected outlier rows, shaped as the source schema plus
// the outlier_group column.
type OutlierSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewOutlierSet returns an empty outlier set shaped for the given schema.
func NewOutlierSet(schema ColumnSchema) *OutlierSet {
	return &OutlierSet{
		Columns: append(schema.Names(), GroupColumn),
		Rows:    []Row{},
	}
}

// Groups returns the distinct outlier group ids in row order.
func (o *OutlierSet) Groups() []int64 {
	seen := make(map[int64]bool)
	var groups []int64
	for _, row := range o.Rows {
		g, err := row.Int64(GroupColumn)
		if err != nil {
			continue
		}
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	return groups
}
