package services

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/queries"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

const (
	// DefaultScale multiplies the IQR when computing outlier bounds.
	// 1.7 approximates a 3-sigma bound for near-normal data, vs the
	// textbook 1.5 (~2.5 sigma).
	DefaultScale = 1.7

	// boundRowLimit caps each bound query result.
	boundRowLimit = 10

	// rareValueRowLimit caps each rare-value sample query result.
	rareValueRowLimit = 3
)

// DetectorOptions configures one outlier detection run.
type DetectorOptions struct {
	// Scale is the IQR multiplier for numeric bounds.
	Scale float64
	// IncludeCategorical enables the rarity pass over categorical columns.
	IncludeCategorical bool
	// MaxCategoricalValues is the distinct-value cap above which a
	// categorical column is skipped as ambiguous.
	MaxCategoricalValues int
	// KeepDuplicateRows preserves a row's membership in multiple outlier
	// groups instead of dropping exact full-row duplicates.
	KeepDuplicateRows bool
}

// DefaultDetectorOptions returns the standard detection configuration.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		Scale:                DefaultScale,
		IncludeCategorical:   false,
		MaxCategoricalValues: DefaultMaxCategoricalValues,
	}
}

// outlierService implements OutlierService.
type outlierService struct {
	runner queryRunner
	cache  *artifacts.Cache
	stats  StatisticsService
	opts   DetectorOptions
}

// NewOutlierService creates a new outlier detector. The given options apply
// to cached Outliers computations; ComputeOutliers takes options per run.
func NewOutlierService(
	executor repositories.QueryExecutor,
	cache *artifacts.Cache,
	stats StatisticsService,
	opts DetectorOptions,
	logger Logger,
	collector metrics.Collector,
) OutlierService {
	if opts.Scale == 0 {
		opts.Scale = DefaultScale
	}
	if opts.MaxCategoricalValues <= 0 {
		opts.MaxCategoricalValues = DefaultMaxCategoricalValues
	}
	return &outlierService{
		runner: queryRunner{executor: executor, logger: logger, metrics: collector},
		cache:  cache,
		stats:  stats,
		opts:   opts,
	}
}

// Outliers returns the cached outlier set, computing it on a miss.
func (s *outlierService) Outliers(ctx context.Context, ds *models.DataSource, recompute bool) (*models.OutlierSet, error) {
	return artifacts.FetchOrCompute(ctx, s.cache, ds.ID, models.ArtifactOutliers, recompute,
		func(ctx context.Context) (*models.OutlierSet, error) {
			return s.ComputeOutliers(ctx, ds, s.opts)
		})
}

// detection tracks the per-run group counter. Group ids are unique and
// strictly increasing in discovery order within one run.
type detection struct {
	group int64
	set   *models.OutlierSet
}

// tag appends the rows with a fresh outlier group.
func (d *detection) tag(rows []models.Row) {
	for _, row := range rows {
		tagged := make(models.Row, len(row)+1)
		for k, v := range row {
			tagged[k] = v
		}
		tagged[models.GroupColumn] = d.group
		d.set.Rows = append(d.set.Rows, tagged)
	}
	d.group++
}

// ComputeOutliers runs one detection pass: IQR bound queries per numeric
// column, then an optional rarity pass per categorical column.
func (s *outlierService) ComputeOutliers(ctx context.Context, ds *models.DataSource, opts DetectorOptions) (*models.OutlierSet, error) {
	runID := uuid.NewString()
	s.runner.logger.Info("Computing outliers",
		"data_source", ds.ID, "run_id", runID,
		"scale", opts.Scale, "include_categorical", opts.IncludeCategorical)

	builder, err := queries.NewBuilder(ds.Table, ds.Schema)
	if err != nil {
		return nil, err
	}

	d := &detection{set: models.NewOutlierSet(ds.Schema)}

	if err := s.numericPass(ctx, ds, builder, opts, d); err != nil {
		return nil, err
	}
	if opts.IncludeCategorical {
		if err := s.categoricalPass(ctx, ds, builder, opts, d); err != nil {
			return nil, err
		}
	}

	if len(d.set.Rows) == 0 {
		s.runner.logger.Warn("No outliers found for this data source", "data_source", ds.ID, "run_id", runID)
		return d.set, nil
	}

	if !opts.KeepDuplicateRows {
		d.set.Rows = dropDuplicates(d.set.Rows, ds.Schema.Names())
	}

	s.runner.metrics.RecordGauge("outlier_rows", float64(len(d.set.Rows)), "data_source", ds.ID)
	s.runner.logger.Info("Outlier detection complete",
		"data_source", ds.ID, "run_id", runID,
		"rows", len(d.set.Rows), "groups", len(d.set.Groups()))
	return d.set, nil
}

// numericPass issues two bound queries per numeric column with IQR > 0,
// lower bound before upper bound, in schema order.
func (s *outlierService) numericPass(ctx context.Context, ds *models.DataSource, builder *queries.Builder,
	opts DetectorOptions, d *detection) error {

	quartiles, err := s.stats.Quartiles(ctx, ds, false)
	if err != nil {
		return err
	}

	for _, col := range ds.Schema {
		if !col.IsNumeric() {
			continue
		}
		q, ok := quartiles[col.Name]
		if !ok {
			continue
		}
		iqr := q.IQR()
		if iqr == 0 {
			s.runner.logger.Info("IQR is 0, skipping column", "column", col.Name)
			continue
		}

		lowerBound := q.Q1 - iqr*opts.Scale
		upperBound := q.Q3 + iqr*opts.Scale

		sql, err := builder.Bound(col.Name, queries.OpLess, lowerBound, queries.OrderAsc, boundRowLimit)
		if err != nil {
			return err
		}
		lower, err := s.runner.run(ctx, sql)
		if err != nil {
			return err
		}

		sql, err = builder.Bound(col.Name, queries.OpGreater, upperBound, queries.OrderDesc, boundRowLimit)
		if err != nil {
			return err
		}
		upper, err := s.runner.run(ctx, sql)
		if err != nil {
			return err
		}

		// Empty results are not errors: no outliers on that side.
		for _, result := range []*models.TabularResult{lower, upper} {
			if result.NumRows() == 0 {
				continue
			}
			s.runner.logger.Info("Found outliers", "column", col.Name, "rows", result.NumRows())
			d.tag(result.Rows)
		}
	}
	return nil
}

// categoricalPass issues a bounded equality query per rare value of each
// categorical column under the distinct-value cap.
func (s *outlierService) categoricalPass(ctx context.Context, ds *models.DataSource, builder *queries.Builder,
	opts DetectorOptions, d *detection) error {

	valueCounts, err := s.stats.ValueCounts(ctx, ds, false)
	if err != nil {
		return err
	}
	details, err := s.stats.Details(ctx, ds, false)
	if err != nil {
		return err
	}
	// 0.1% of total rows, floored at 3 occurrences.
	minCount := math.Max(3, float64(details.NumRows)*0.001)

	for _, col := range ds.Schema {
		if col.IsNumeric() {
			continue
		}
		counts, ok := valueCounts[col.Name]
		if !ok {
			continue
		}
		// A column that hit the cap has unknown counts beyond it; skip as ambiguous.
		if len(counts) >= opts.MaxCategoricalValues {
			s.runner.logger.Warn("Skipping column with too many unique values", "column", col.Name)
			continue
		}

		for _, vc := range counts {
			if float64(vc.Count) >= minCount {
				continue
			}
			s.runner.logger.Info("Found rare value", "column", col.Name, "value", vc.Value, "count", vc.Count)
			sql, err := builder.EqualString(col.Name, vc.Value, rareValueRowLimit)
			if err != nil {
				return err
			}
			result, err := s.runner.run(ctx, sql)
			if err != nil {
				return err
			}
			if result.NumRows() == 0 {
				continue
			}
			d.tag(result.Rows)
		}
	}
	return nil
}

// dropDuplicates keeps the first occurrence of each row, identified by its
// values over the schema columns. The group tag is not part of the identity,
// so a row violating two bounds keeps only its first group.
func dropDuplicates(rows []models.Row, columns []string) []models.Row {
	seen := make(map[string]bool, len(rows))
	deduped := rows[:0]
	for _, row := range rows {
		id := row.Identity(columns)
		if seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, row)
	}
	return deduped
}
