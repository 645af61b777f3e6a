package services

import (
	"context"
	"fmt"

	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/queries"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// DefaultMaxCategoricalValues caps how many distinct values are stored per
// categorical column. The original backend imposed 40; it is configurable
// because the cap is a storage limit, not a statistical threshold.
const DefaultMaxCategoricalValues = 40

// statisticsService implements StatisticsService.
type statisticsService struct {
	runner    queryRunner
	cache     *artifacts.Cache
	maxValues int
}

// NewStatisticsService creates a new statistics aggregator. maxValues caps
// the stored distinct values per categorical column; 0 applies the default.
func NewStatisticsService(
	executor repositories.QueryExecutor,
	cache *artifacts.Cache,
	maxValues int,
	logger Logger,
	collector metrics.Collector,
) StatisticsService {
	if maxValues <= 0 {
		maxValues = DefaultMaxCategoricalValues
	}
	return &statisticsService{
		runner:    queryRunner{executor: executor, logger: logger, metrics: collector},
		cache:     cache,
		maxValues: maxValues,
	}
}

// Details computes the summary metadata for the data source.
func (s *statisticsService) Details(ctx context.Context, ds *models.DataSource, recompute bool) (models.Details, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactDetails, recompute,
		func(ctx context.Context) (models.Details, error) {
			builder, err := queries.NewBuilder(ds.Table, ds.Schema)
			if err != nil {
				return models.Details{}, err
			}
			result, err := s.runner.run(ctx, builder.RowCount())
			if err != nil {
				return models.Details{}, err
			}
			row := result.FirstRow()
			if row == nil {
				return models.Details{}, errors.New(errors.CodeQueryFailed, "row count query returned no rows")
			}
			numRows, err := row.Int64("count")
			if err != nil {
				return models.Details{}, errors.Wrap(err, errors.CodeQueryFailed, "failed to read row count")
			}

			columnDetails := make(map[string]string, len(ds.Schema))
			for _, col := range ds.Schema {
				columnDetails[col.Name] = col.Type
			}
			return models.Details{
				ID:            ds.ID,
				Table:         ds.Table,
				NumRows:       numRows,
				NumColumns:    len(ds.Schema),
				ColumnDetails: columnDetails,
			}, nil
		})
}

// Quartiles computes q1/median/q3 for every numeric column in one round trip.
func (s *statisticsService) Quartiles(ctx context.Context, ds *models.DataSource, recompute bool) (models.QuartileMap, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactQuartiles, recompute,
		func(ctx context.Context) (models.QuartileMap, error) {
			numeric := ds.Schema.NumericColumns()
			if len(numeric) == 0 {
				return models.QuartileMap{}, nil
			}

			builder, err := queries.NewBuilder(ds.Table, ds.Schema)
			if err != nil {
				return nil, err
			}
			sql, err := builder.Quartiles(numeric)
			if err != nil {
				return nil, err
			}
			result, err := s.runner.run(ctx, sql)
			if err != nil {
				return nil, err
			}
			row := result.FirstRow()
			if row == nil {
				return nil, errors.New(errors.CodeQueryFailed, "quartile query returned no rows")
			}

			quartiles := make(models.QuartileMap, len(numeric))
			for _, col := range numeric {
				q1, err1 := row.Float64(queries.QuartileAlias(col, "q1"))
				median, err2 := row.Float64(queries.QuartileAlias(col, "median"))
				q3, err3 := row.Float64(queries.QuartileAlias(col, "q3"))
				if err1 != nil || err2 != nil || err3 != nil {
					// All-null columns yield null quartiles; they simply get no record.
					continue
				}
				quartiles[col] = models.Quartiles{Q1: q1, Median: median, Q3: q3}
			}
			return quartiles, nil
		})
}

// ValueCounts computes capped distinct value counts for every categorical column.
func (s *statisticsService) ValueCounts(ctx context.Context, ds *models.DataSource, recompute bool) (models.ValueCountMap, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactValueCounts, recompute,
		func(ctx context.Context) (models.ValueCountMap, error) {
			builder, err := queries.NewBuilder(ds.Table, ds.Schema)
			if err != nil {
				return nil, err
			}

			counts := make(models.ValueCountMap)
			for _, col := range ds.Schema.CategoricalColumns() {
				sql, err := builder.ValueCounts(col, s.maxValues)
				if err != nil {
					return nil, err
				}
				result, err := s.runner.run(ctx, sql)
				if err != nil {
					return nil, err
				}

				values := make([]models.ValueCount, 0, result.NumRows())
				for _, row := range result.Rows {
					if row[col] == nil {
						continue
					}
					count, err := row.Int64("count")
					if err != nil {
						return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to read value count for %s", col)
					}
					values = append(values, models.ValueCount{
						Value: fmt.Sprintf("%v", row[col]),
						Count: count,
					})
				}
				counts[col] = values
			}
			return counts, nil
		})
}

// ColumnStats aggregates per-column statistics. Quartiles and value counts
// are computed first; distinct, null and zero counts take exactly three
// round trips regardless of column count. Any query error aborts the whole
// call with no partial stats.
func (s *statisticsService) ColumnStats(ctx context.Context, ds *models.DataSource, recompute bool) (models.ColumnStats, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactColumnStats, recompute,
		func(ctx context.Context) (models.ColumnStats, error) {
			quartiles, err := s.Quartiles(ctx, ds, recompute)
			if err != nil {
				return nil, err
			}
			valueCounts, err := s.ValueCounts(ctx, ds, recompute)
			if err != nil {
				return nil, err
			}

			numeric := ds.Schema.NumericColumns()
			allColumns := append(append([]string{}, numeric...), ds.Schema.CategoricalColumns()...)

			builder, err := queries.NewBuilder(ds.Table, ds.Schema)
			if err != nil {
				return nil, err
			}

			s.runner.logger.Info("Computing unique values", "data_source", ds.ID)
			sql, err := builder.DistinctCount(allColumns)
			if err != nil {
				return nil, err
			}
			distinct, err := s.runner.run(ctx, sql)
			if err != nil {
				return nil, err
			}

			s.runner.logger.Info("Computing null values", "data_source", ds.ID)
			sql, err = builder.NullCount(allColumns)
			if err != nil {
				return nil, err
			}
			nulls, err := s.runner.run(ctx, sql)
			if err != nil {
				return nil, err
			}

			var zeros *models.TabularResult
			if len(numeric) > 0 {
				s.runner.logger.Info("Computing zero values", "data_source", ds.ID)
				sql, err = builder.ZeroCount(numeric)
				if err != nil {
					return nil, err
				}
				zeros, err = s.runner.run(ctx, sql)
				if err != nil {
					return nil, err
				}
			}

			stats := make(models.ColumnStats, len(ds.Schema))
			for _, col := range ds.Schema {
				stat := models.ColumnStat{Dtype: col.Type}

				if stat.Unique, err = distinct.FirstRow().Int64(col.Name); err != nil {
					return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to read distinct count for %s", col.Name)
				}
				if stat.Nulls, err = nulls.FirstRow().Int64(col.Name); err != nil {
					return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to read null count for %s", col.Name)
				}

				if col.IsNumeric() {
					numZeros, err := zeros.FirstRow().Int64("zero_values_" + col.Name)
					if err != nil {
						return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to read zero count for %s", col.Name)
					}
					stat.NumZeros = &numZeros
					if q, ok := quartiles[col.Name]; ok {
						quartileCopy := q
						stat.Quartiles = &quartileCopy
					}
				} else if vc, ok := valueCounts[col.Name]; ok {
					stat.ValueCounts = vc
				}

				stats[col.Name] = stat
			}
			return stats, nil
		})
}
