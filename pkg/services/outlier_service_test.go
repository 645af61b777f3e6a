package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories/memory"
)

func newOutlierService(exec *fakeExecutor, stats StatisticsService, opts DetectorOptions) OutlierService {
	cache := artifacts.NewCache(memory.NewMetadataStore())
	return NewOutlierService(exec, cache, stats, opts, NopLogger{}, metrics.NewNoOpCollector())
}

// Ten values 1..9 plus 1000: q1=3.25, q3=7.75, IQR=4.5. At scale 1.7 the
// bounds are -4.4 and 15.4, so only the 1000 row is an outlier.
func TestComputeOutliers_IQRBounds(t *testing.T) {
	ctx := context.Background()
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age": {Q1: 3.25, Median: 5.5, Q3: 7.75},
	}}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "age < ", result: rowsResult([]string{"age", "name"})},
		{match: "age > ", result: rowsResult([]string{"age", "name"},
			models.Row{"age": int64(1000), "name": "big"})},
	}}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())

	set, err := svc.ComputeOutliers(ctx, testDataSource(), DefaultDetectorOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "name", models.GroupColumn}, set.Columns)
	require.Len(t, set.Rows, 1)
	assert.Equal(t, int64(1000), set.Rows[0]["age"])
	assert.Equal(t, int64(0), set.Rows[0][models.GroupColumn])
	assert.Equal(t, []int64{0}, set.Groups())

	// Lower bound asc before upper bound desc, both bounded.
	lower := strconv.FormatFloat(3.25-4.5*1.7, 'f', -1, 64)
	upper := strconv.FormatFloat(7.75+4.5*1.7, 'f', -1, 64)
	require.Len(t, exec.queries, 2)
	assert.Contains(t, exec.queries[0], "WHERE age < "+lower)
	assert.Contains(t, exec.queries[0], "ORDER BY age asc LIMIT 10")
	assert.Contains(t, exec.queries[1], "WHERE age > "+upper)
	assert.Contains(t, exec.queries[1], "ORDER BY age desc LIMIT 10")
}

func TestComputeOutliers_ZeroIQRSkipsColumn(t *testing.T) {
	ctx := context.Background()
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age": {Q1: 5, Median: 5, Q3: 5},
	}}
	exec := &fakeExecutor{t: t}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())

	set, err := svc.ComputeOutliers(ctx, testDataSource(), DefaultDetectorOptions())
	require.NoError(t, err)

	assert.Empty(t, set.Rows)
	assert.Equal(t, []string{"age", "name", models.GroupColumn}, set.Columns)
	assert.Empty(t, exec.queries)
}

func TestComputeOutliers_GroupIdsIncreasePerResult(t *testing.T) {
	ctx := context.Background()
	ds := &models.DataSource{
		ID:    "test_data",
		Table: "test_data",
		Schema: models.ColumnSchema{
			{Name: "age", Type: "int"},
			{Name: "height", Type: "double"},
		},
	}
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age":    {Q1: 10, Median: 20, Q3: 30},
		"height": {Q1: 1, Median: 2, Q3: 3},
	}}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "age < ", result: rowsResult([]string{"age", "height"},
			models.Row{"age": int64(-50), "height": 2.0})},
		{match: "age > ", result: rowsResult([]string{"age", "height"},
			models.Row{"age": int64(90), "height": 2.5})},
		{match: "height < ", result: rowsResult([]string{"age", "height"})},
		{match: "height > ", result: rowsResult([]string{"age", "height"},
			models.Row{"age": int64(20), "height": 9.0})},
	}}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())

	set, err := svc.ComputeOutliers(ctx, ds, DefaultDetectorOptions())
	require.NoError(t, err)

	// One group per non-empty bound result, in schema order. The empty
	// height lower bound does not burn a group id.
	require.Len(t, set.Rows, 3)
	assert.Equal(t, []int64{0, 1, 2}, set.Groups())
}

func TestComputeOutliers_DropsDuplicateRows(t *testing.T) {
	ctx := context.Background()
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age": {Q1: 3.25, Median: 5.5, Q3: 7.75},
	}}
	duplicated := models.Row{"age": int64(1000), "name": "big"}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "age < ", result: rowsResult([]string{"age", "name"}, duplicated)},
		{match: "age > ", result: rowsResult([]string{"age", "name"}, duplicated)},
	}}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())

	set, err := svc.ComputeOutliers(ctx, testDataSource(), DefaultDetectorOptions())
	require.NoError(t, err)

	// The row violated both bounds but keeps only its first group.
	require.Len(t, set.Rows, 1)
	assert.Equal(t, int64(0), set.Rows[0][models.GroupColumn])

	opts := DefaultDetectorOptions()
	opts.KeepDuplicateRows = true
	set, err = svc.ComputeOutliers(ctx, testDataSource(), opts)
	require.NoError(t, err)

	require.Len(t, set.Rows, 2)
	assert.Equal(t, []int64{0, 1}, set.Groups())
}

func TestComputeOutliers_RareCategoricalValues(t *testing.T) {
	ctx := context.Background()
	ds := &models.DataSource{
		ID:    "employees",
		Table: "employees",
		Schema: models.ColumnSchema{
			{Name: "city", Type: "string"},
			{Name: "name", Type: "string"},
		},
	}
	// 1000 rows: the threshold is max(3, 1000*0.001) = 3, so only the
	// twice-seen value is rare. name has no recorded counts and is skipped.
	stats := &fakeStats{
		details: models.Details{ID: "employees", NumRows: 1000},
		valueCounts: models.ValueCountMap{
			"city": {
				{Value: "Boston", Count: 600},
				{Value: "NYC", Count: 398},
				{Value: "Remote", Count: 2},
			},
		},
	}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "city = 'Remote'", result: rowsResult([]string{"city", "name"},
			models.Row{"city": "Remote", "name": "alice"},
			models.Row{"city": "Remote", "name": "bob"})},
	}}
	opts := DefaultDetectorOptions()
	opts.IncludeCategorical = true
	svc := newOutlierService(exec, stats, opts)

	set, err := svc.ComputeOutliers(ctx, ds, opts)
	require.NoError(t, err)

	require.Len(t, set.Rows, 2)
	assert.Equal(t, []int64{0}, set.Groups())
	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "WHERE city = 'Remote' LIMIT 3")
}

func TestComputeOutliers_SkipsCappedCategoricalColumn(t *testing.T) {
	ctx := context.Background()
	ds := &models.DataSource{
		ID:     "employees",
		Table:  "employees",
		Schema: models.ColumnSchema{{Name: "city", Type: "string"}},
	}
	stats := &fakeStats{
		details: models.Details{ID: "employees", NumRows: 1000},
		valueCounts: models.ValueCountMap{
			"city": {
				{Value: "Boston", Count: 600},
				{Value: "Remote", Count: 2},
			},
		},
	}
	exec := &fakeExecutor{t: t}
	opts := DefaultDetectorOptions()
	opts.IncludeCategorical = true
	opts.MaxCategoricalValues = 2
	svc := newOutlierService(exec, stats, opts)

	// A column at the cap has unknown counts beyond it; no rarity queries.
	set, err := svc.ComputeOutliers(ctx, ds, opts)
	require.NoError(t, err)
	assert.Empty(t, set.Rows)
	assert.Empty(t, exec.queries)
}

func TestOutliers_CachesComputedSet(t *testing.T) {
	ctx := context.Background()
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age": {Q1: 3.25, Median: 5.5, Q3: 7.75},
	}}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "age < ", result: rowsResult([]string{"age", "name"})},
		{match: "age > ", result: rowsResult([]string{"age", "name"},
			models.Row{"age": int64(1000), "name": "big"})},
	}}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())
	ds := testDataSource()

	first, err := svc.Outliers(ctx, ds, false)
	require.NoError(t, err)
	require.Len(t, first.Rows, 1)
	queriesAfterCompute := len(exec.queries)

	second, err := svc.Outliers(ctx, ds, false)
	require.NoError(t, err)

	assert.Equal(t, first.Columns, second.Columns)
	assert.Len(t, second.Rows, 1)
	assert.Len(t, exec.queries, queriesAfterCompute)
}

func TestComputeOutliers_BoundValueFormatting(t *testing.T) {
	ctx := context.Background()
	stats := &fakeStats{quartiles: models.QuartileMap{
		"age": {Q1: 10, Median: 15, Q3: 20},
	}}
	exec := &fakeExecutor{t: t, responses: []fakeResponse{
		{match: "age < ", result: rowsResult([]string{"age", "name"})},
		{match: "age > ", result: rowsResult([]string{"age", "name"})},
	}}
	svc := newOutlierService(exec, stats, DefaultDetectorOptions())

	set, err := svc.ComputeOutliers(ctx, testDataSource(), DefaultDetectorOptions())
	require.NoError(t, err)
	assert.Empty(t, set.Rows)

	// IQR 10 at scale 1.7: bounds 10-17 and 20+17, rendered as plain decimals
	// exactly as the builder formats them.
	lower := strconv.FormatFloat(10-10*1.7, 'f', -1, 64)
	upper := strconv.FormatFloat(20+10*1.7, 'f', -1, 64)
	require.Len(t, exec.queries, 2)
	assert.True(t, strings.Contains(exec.queries[0], "age < "+lower), exec.queries[0])
	assert.True(t, strings.Contains(exec.queries[1], "age > "+upper), exec.queries[1])
}
