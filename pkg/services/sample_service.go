package services

import (
	"context"
	"math"

	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/queries"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// DefaultSampleRows is the sample size cap. Fixed so artifact storage stays
// consistent across data sources.
const DefaultSampleRows = 100

// sampleService implements SampleService.
type sampleService struct {
	runner     queryRunner
	cache      *artifacts.Cache
	stats      StatisticsService
	outliers   OutlierService
	targetRows int
}

// NewSampleService creates a new sampler. targetRows caps the sample size;
// 0 applies the default.
func NewSampleService(
	executor repositories.QueryExecutor,
	cache *artifacts.Cache,
	stats StatisticsService,
	outliers OutlierService,
	targetRows int,
	logger Logger,
	collector metrics.Collector,
) SampleService {
	if targetRows <= 0 {
		targetRows = DefaultSampleRows
	}
	return &sampleService{
		runner:     queryRunner{executor: executor, logger: logger, metrics: collector},
		cache:      cache,
		stats:      stats,
		outliers:   outliers,
		targetRows: targetRows,
	}
}

// Sample returns the cached sample, computing it on a miss or when recompute
// is set. Sources larger than the target are sampled probabilistically and
// truncated; smaller sources are scanned in full.
func (s *sampleService) Sample(ctx context.Context, ds *models.DataSource, recompute bool) (*models.TabularResult, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactSample, recompute,
		func(ctx context.Context) (*models.TabularResult, error) {
			details, err := s.stats.Details(ctx, ds, false)
			if err != nil {
				return nil, err
			}

			builder, err := queries.NewBuilder(ds.Table, ds.Schema)
			if err != nil {
				return nil, err
			}

			var sql string
			if details.NumRows > int64(s.targetRows) {
				// Bernoulli sampling has real variance, so overshoot the
				// percentage by one and truncate the result instead of using
				// a LIMIT that would bias toward physically-first rows.
				percentage := int(math.Round(float64(s.targetRows)*100.0/float64(details.NumRows))) + 1
				s.runner.logger.Warn("Sampling data source down",
					"data_source", ds.ID, "num_rows", details.NumRows,
					"target_rows", s.targetRows, "percentage", percentage)
				sql = builder.BernoulliSample(percentage)
			} else {
				sql = builder.SelectAll()
			}

			result, err := s.runner.run(ctx, sql)
			if err != nil {
				return nil, err
			}
			if result.NumRows() > s.targetRows {
				result.Rows = result.Rows[:s.targetRows]
			}
			return result, nil
		})
}

// SmartSample combines the cached sample with the cached outlier rows,
// de-duplicated by full-row identity over the schema columns.
func (s *sampleService) SmartSample(ctx context.Context, ds *models.DataSource) (*models.TabularResult, error) {
	sample, err := s.Sample(ctx, ds, false)
	if err != nil {
		return nil, err
	}
	outliers, err := s.outliers.Outliers(ctx, ds, false)
	if err != nil {
		return nil, err
	}

	columns := ds.Schema.Names()
	combined := &models.TabularResult{
		Columns: append(append([]string{}, columns...), models.GroupColumn),
		Rows:    append(append([]models.Row{}, sample.Rows...), outliers.Rows...),
	}
	combined.Rows = dropDuplicates(combined.Rows, columns)
	return combined, nil
}
