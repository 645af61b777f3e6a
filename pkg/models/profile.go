package models

// Quartiles holds the quartile bounds for one numeric column.
type Quartiles struct {
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// IQR returns the interquartile range, q3 - q1.
func (q Quartiles) IQR() float64 {
	return q.Q3 - q.Q1
}

// ValueCount is one distinct value and its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// QuartileMap maps numeric column name to its quartile record.
type QuartileMap map[string]Quartiles

// ValueCountMap maps categorical column name to its ordered value counts
// (descending count order, capped by the detector's distinct-value limit).
type ValueCountMap map[string][]ValueCount

// ColumnStat holds the per-column statistics record. Numeric-only fields are
// absent for categorical columns and vice versa.
type ColumnStat struct {
	Dtype       string       `json:"dtype"`
	Unique      int64        `json:"unique"`
	Nulls       int64        `json:"nulls"`
	NumZeros    *int64       `json:"num_zeros,omitempty"`
	Quartiles   *Quartiles   `json:"quartiles,omitempty"`
	ValueCounts []ValueCount `json:"value_counts,omitempty"`
}

// ColumnStats maps every schema column to its statistics record.
type ColumnStats map[string]ColumnStat

// Details holds the summary metadata computed for a data source.
type Details struct {
	ID            string            `json:"id"`
	Table         string            `json:"table"`
	NumRows       int64             `json:"num_rows"`
	NumColumns    int               `json:"num_columns"`
	ColumnDetails map[string]string `json:"column_details"`
}
