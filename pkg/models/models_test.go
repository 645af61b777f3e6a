package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn_IsNumeric(t *testing.T) {
	tests := []struct {
		declared string
		want     bool
	}{
		{"int", true},
		{"bigint", true},
		{"tinyint", true},
		{"smallint", true},
		{"float", true},
		{"double", true},
		{"decimal", true},
		{"decimal(10,2)", true},
		{"DOUBLE", true},
		{"string", false},
		{"varchar", false},
		{"timestamp", false},
		{"interval", false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			col := Column{Name: "c", Type: tt.declared}
			assert.Equal(t, tt.want, col.IsNumeric())
		})
	}
}

func TestColumnSchema_Partition(t *testing.T) {
	schema := ColumnSchema{
		{Name: "age", Type: "int"},
		{Name: "name", Type: "string"},
		{Name: "height", Type: "double"},
		{Name: "city", Type: "string"},
	}

	assert.Equal(t, []string{"age", "name", "height", "city"}, schema.Names())
	assert.Equal(t, []string{"age", "height"}, schema.NumericColumns())
	assert.Equal(t, []string{"name", "city"}, schema.CategoricalColumns())

	assert.True(t, schema.Contains("city"))
	assert.False(t, schema.Contains("missing"))

	dtype, ok := schema.TypeOf("height")
	require.True(t, ok)
	assert.Equal(t, "double", dtype)
}

func TestQuartiles_IQR(t *testing.T) {
	q := Quartiles{Q1: 3.25, Median: 5.5, Q3: 7.75}
	assert.InDelta(t, 4.5, q.IQR(), 1e-9)
}

func TestRow_NumericAccessors(t *testing.T) {
	row := Row{"a": int64(7), "b": 2.5, "c": "11", "d": nil}

	a, err := row.Int64("a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a)

	b, err := row.Float64("b")
	require.NoError(t, err)
	assert.Equal(t, 2.5, b)

	c, err := row.Int64("c")
	require.NoError(t, err)
	assert.Equal(t, int64(11), c)

	_, err = row.Int64("d")
	require.Error(t, err)

	_, err = row.Float64("missing")
	require.Error(t, err)
}

func TestRow_Identity_IgnoresGroupTag(t *testing.T) {
	columns := []string{"age", "name"}
	first := Row{"age": 1000, "name": "x", GroupColumn: int64(0)}
	second := Row{"age": 1000, "name": "x", GroupColumn: int64(3)}
	other := Row{"age": 999, "name": "x", GroupColumn: int64(1)}

	assert.Equal(t, first.Identity(columns), second.Identity(columns))
	assert.NotEqual(t, first.Identity(columns), other.Identity(columns))
}

func TestNewOutlierSet_Shape(t *testing.T) {
	schema := ColumnSchema{
		{Name: "age", Type: "int"},
		{Name: "name", Type: "string"},
	}

	set := NewOutlierSet(schema)
	assert.Equal(t, []string{"age", "name", GroupColumn}, set.Columns)
	assert.Empty(t, set.Rows)
	assert.Empty(t, set.Groups())
}

func TestOutlierSet_Groups(t *testing.T) {
	set := &OutlierSet{
		Columns: []string{"age", GroupColumn},
		Rows: []Row{
			{"age": 1000, GroupColumn: int64(0)},
			{"age": 1001, GroupColumn: int64(0)},
			{"age": -50, GroupColumn: int64(1)},
		},
	}
	assert.Equal(t, []int64{0, 1}, set.Groups())
}
