// Package services contains the profiling business logic: the statistics
// aggregator, the outlier detector, the sampler, and the readiness
// orchestrator.
package services

import (
	"context"

	"github.com/sdidier-dev/sageworks/pkg/models"
)

// StatisticsService computes and caches per-column statistics.
type StatisticsService interface {
	// Details computes the summary metadata (row/column counts).
	Details(ctx context.Context, ds *models.DataSource, recompute bool) (models.Details, error)
	// Quartiles computes q1/median/q3 for every numeric column.
	Quartiles(ctx context.Context, ds *models.DataSource, recompute bool) (models.QuartileMap, error)
	// ValueCounts computes capped distinct value counts for every categorical column.
	ValueCounts(ctx context.Context, ds *models.DataSource, recompute bool) (models.ValueCountMap, error)
	// ColumnStats aggregates dtype, uniques, nulls, zeros, quartiles and
	// value counts into one record per schema column.
	ColumnStats(ctx context.Context, ds *models.DataSource, recompute bool) (models.ColumnStats, error)
}

// OutlierService detects and caches outlier rows.
type OutlierService interface {
	// Outliers returns the cached outlier set, computing it on a miss or
	// when recompute is set.
	Outliers(ctx context.Context, ds *models.DataSource, recompute bool) (*models.OutlierSet, error)
	// ComputeOutliers runs one detection pass without touching the cache.
	ComputeOutliers(ctx context.Context, ds *models.DataSource, opts DetectorOptions) (*models.OutlierSet, error)
}

// SampleService computes and caches a bounded representative sample.
type SampleService interface {
	// Sample returns the cached sample rows, computing them on a miss or
	// when recompute is set.
	Sample(ctx context.Context, ds *models.DataSource, recompute bool) (*models.TabularResult, error)
	// SmartSample combines the cached sample with the cached outlier rows.
	SmartSample(ctx context.Context, ds *models.DataSource) (*models.TabularResult, error)
}

// ReadinessService sequences the derived computations and tracks entity status.
type ReadinessService interface {
	// IsReady reports whether the sample and outliers artifacts are cached.
	// Pure presence check, no computation.
	IsReady(ctx context.Context, ds *models.DataSource) (bool, error)
	// EnsureReady backfills whichever required artifact is missing.
	EnsureReady(ctx context.Context, ds *models.DataSource) error
	// MakeReady runs the blocking computation sequence and sets terminal
	// status. Returns false plus the underlying cause on failure.
	MakeReady(ctx context.Context, ds *models.DataSource) (bool, error)
	// Status returns the persisted entity status.
	Status(ctx context.Context, ds *models.DataSource) (models.Status, error)
	// SetStatus persists the entity status.
	SetStatus(ctx context.Context, ds *models.DataSource, status models.Status) error
	// HealthTags returns the persisted health tags.
	HealthTags(ctx context.Context, ds *models.DataSource) ([]string, error)
	// AddHealthTag records a health tag, without duplicates.
	AddHealthTag(ctx context.Context, ds *models.DataSource, tag string) error
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NopLogger is a Logger that discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (NopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (NopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (NopLogger) Error(msg string, keysAndValues ...interface{}) {}
