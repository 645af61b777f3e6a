// Package models provides data structures used throughout the profiling engine.
package models

import "strings"

// Status represents the readiness state of a data source.
type Status string

const (
	// StatusNotReady indicates derived artifacts have not been computed yet.
	StatusNotReady Status = "not_ready"
	// StatusReady indicates all required derived artifacts are cached.
	StatusReady Status = "ready"
	// StatusError indicates the last readiness run failed.
	StatusError Status = "error"
)

// Artifact names for the derived values cached per data source.
const (
	ArtifactSample      = "sample"
	ArtifactOutliers    = "outliers"
	ArtifactQuartiles   = "quartiles"
	ArtifactValueCounts = "value_counts"
	ArtifactColumnStats = "column_stats"
	ArtifactDetails     = "details"
)

// numericTypes is the declared-type allowlist used to partition columns.
// Matching is prefix based so parameterized types like decimal(10,2) qualify.
var numericTypes = []string{"tinyint", "smallint", "int", "bigint", "float", "double", "decimal"}

// Column describes one column of a data source schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsNumeric reports whether the column's declared type is on the numeric allowlist.
func (c Column) IsNumeric() bool {
	declared := strings.ToLower(strings.TrimSpace(c.Type))
	for _, t := range numericTypes {
		if declared == t || strings.HasPrefix(declared, t+"(") {
			return true
		}
	}
	return false
}

// ColumnSchema is an ordered mapping of column name to declared type.
type ColumnSchema []Column

// Names returns the column names in schema order.
func (s ColumnSchema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Contains reports whether the schema declares the given column.
func (s ColumnSchema) Contains(name string) bool {
	for _, col := range s {
		if col.Name == name {
			return true
		}
	}
	return false
}

// TypeOf returns the declared type for the given column.
func (s ColumnSchema) TypeOf(name string) (string, bool) {
	for _, col := range s {
		if col.Name == name {
			return col.Type, true
		}
	}
	return "", false
}

// NumericColumns returns the names of columns on the numeric allowlist, in schema order.
func (s ColumnSchema) NumericColumns() []string {
	var numeric []string
	for _, col := range s {
		if col.IsNumeric() {
			numeric = append(numeric, col.Name)
		}
	}
	return numeric
}

// CategoricalColumns returns the names of non-numeric columns, in schema order.
func (s ColumnSchema) CategoricalColumns() []string {
	var categorical []string
	for _, col := range s {
		if !col.IsNumeric() {
			categorical = append(categorical, col.Name)
		}
	}
	return categorical
}

// DataSource identifies one logical tabular dataset behind a remote query engine.
// It carries identity only; all derived state lives in the metadata store.
type DataSource struct {
	ID     string       `json:"id"`
	Table  string       `json:"table"`
	Schema ColumnSchema `json:"schema"`
}
