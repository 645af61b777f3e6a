package services

import (
	"context"
	"strings"
	"testing"

	"github.com/sdidier-dev/sageworks/pkg/models"
)

// fakeResponse scripts one executor answer, matched by SQL substring.
type fakeResponse struct {
	match  string
	result *models.TabularResult
	err    error
}

// fakeExecutor answers synthesized queries from a script, first match wins,
// and records every query it saw.
type fakeExecutor struct {
	t         *testing.T
	responses []fakeResponse
	queries   []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) (*models.TabularResult, error) {
	f.queries = append(f.queries, sql)
	for _, r := range f.responses {
		if strings.Contains(sql, r.match) {
			return r.result, r.err
		}
	}
	f.t.Fatalf("unexpected query: %s", sql)
	return nil, nil
}

func (f *fakeExecutor) queriesMatching(substr string) []string {
	var matched []string
	for _, q := range f.queries {
		if strings.Contains(q, substr) {
			matched = append(matched, q)
		}
	}
	return matched
}

// singleRow builds a one-row result from the given values.
func singleRow(values models.Row) *models.TabularResult {
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	return &models.TabularResult{Columns: columns, Rows: []models.Row{values}}
}

// rowsResult builds a result with the given columns and rows.
func rowsResult(columns []string, rows ...models.Row) *models.TabularResult {
	if rows == nil {
		rows = []models.Row{}
	}
	return &models.TabularResult{Columns: columns, Rows: rows}
}

// fakeStats is a canned StatisticsService for detector and sampler tests.
type fakeStats struct {
	details     models.Details
	quartiles   models.QuartileMap
	valueCounts models.ValueCountMap
	columnStats models.ColumnStats
	err         error
}

func (f *fakeStats) Details(ctx context.Context, ds *models.DataSource, recompute bool) (models.Details, error) {
	return f.details, f.err
}

func (f *fakeStats) Quartiles(ctx context.Context, ds *models.DataSource, recompute bool) (models.QuartileMap, error) {
	return f.quartiles, f.err
}

func (f *fakeStats) ValueCounts(ctx context.Context, ds *models.DataSource, recompute bool) (models.ValueCountMap, error) {
	return f.valueCounts, f.err
}

func (f *fakeStats) ColumnStats(ctx context.Context, ds *models.DataSource, recompute bool) (models.ColumnStats, error) {
	return f.columnStats, f.err
}

// fakeOutliers is a canned OutlierService for sampler tests.
type fakeOutliers struct {
	set *models.OutlierSet
	err error
}

func (f *fakeOutliers) Outliers(ctx context.Context, ds *models.DataSource, recompute bool) (*models.OutlierSet, error) {
	return f.set, f.err
}

func (f *fakeOutliers) ComputeOutliers(ctx context.Context, ds *models.DataSource, opts DetectorOptions) (*models.OutlierSet, error) {
	return f.set, f.err
}

func testDataSource() *models.DataSource {
	return &models.DataSource{
		ID:    "test_data",
		Table: "test_data",
		Schema: models.ColumnSchema{
			{Name: "age", Type: "int"},
			{Name: "name", Type: "string"},
		},
	}
}
