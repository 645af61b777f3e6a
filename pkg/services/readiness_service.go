package services

import (
	"context"
	"encoding/json"

	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/errors"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// Metadata keys for entity state.
const (
	statusKey     = "status"
	healthTagsKey = "health_tags"
)

// HealthTagNotReady marks a data source whose artifacts are not computed yet.
const HealthTagNotReady = "not_ready"

// readinessService implements ReadinessService: the state machine over a
// data source that sequences sampler, statistics aggregator, outlier
// detector and metadata refresh.
type readinessService struct {
	cache    *artifacts.Cache
	store    repositories.MetadataStore
	schemas  repositories.SchemaProvider
	sample   SampleService
	stats    StatisticsService
	outliers OutlierService
	logger   Logger
	metrics  metrics.Collector
}

// NewReadinessService creates a new readiness orchestrator. schemas may be
// nil when the caller owns schema resolution; metadata refresh then only
// re-reads cached artifacts.
func NewReadinessService(
	cache *artifacts.Cache,
	store repositories.MetadataStore,
	schemas repositories.SchemaProvider,
	sample SampleService,
	stats StatisticsService,
	outliers OutlierService,
	logger Logger,
	collector metrics.Collector,
) ReadinessService {
	return &readinessService{
		cache:    cache,
		store:    store,
		schemas:  schemas,
		sample:   sample,
		stats:    stats,
		outliers: outliers,
		logger:   logger,
		metrics:  collector,
	}
}

// IsReady reports whether the sample and outliers artifacts are cached.
// Pure presence check: no computation, no hidden latency.
func (s *readinessService) IsReady(ctx context.Context, ds *models.DataSource) (bool, error) {
	for _, artifact := range []string{models.ArtifactSample, models.ArtifactOutliers} {
		ok, err := s.cache.Has(ctx, ds.ID, artifact)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// EnsureReady backfills whichever required artifact is missing.
func (s *readinessService) EnsureReady(ctx context.Context, ds *models.DataSource) error {
	ok, err := s.cache.Has(ctx, ds.ID, models.ArtifactSample)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("Data source is missing its sample, computing it", "data_source", ds.ID)
		if _, err := s.sample.Sample(ctx, ds, false); err != nil {
			return err
		}
	}

	ok, err = s.cache.Has(ctx, ds.ID, models.ArtifactOutliers)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("Data source is missing its outliers, computing them", "data_source", ds.ID)
		if _, err := s.outliers.Outliers(ctx, ds, false); err != nil {
			return err
		}
	}
	return nil
}

// MakeReady runs the blocking computation sequence. On success the entity
// status is ready and the not_ready health tag is cleared; on any failure
// the status is forced to error and the cause is returned alongside false.
// Cache writes from completed sub-steps are kept either way.
func (s *readinessService) MakeReady(ctx context.Context, ds *models.DataSource) (bool, error) {
	timer := s.metrics.StartTimer("readiness_run_seconds")
	ok, err := s.makeReady(ctx, ds)
	elapsed := timer.Stop()

	if err != nil {
		s.logger.Error("Data source failed to become ready", "data_source", ds.ID, "error", err)
		s.metrics.IncrementCounter("readiness_runs_total", "status", "error")
		if statusErr := s.SetStatus(ctx, ds, models.StatusError); statusErr != nil {
			s.logger.Error("Failed to persist error status", "data_source", ds.ID, "error", statusErr)
		}
		return false, errors.Wrap(err, errors.CodeReadinessFailed, "make ready failed")
	}

	s.metrics.IncrementCounter("readiness_runs_total", "status", "ready")
	s.metrics.RecordHistogram("readiness_run_seconds", elapsed)
	return ok, nil
}

func (s *readinessService) makeReady(ctx context.Context, ds *models.DataSource) (bool, error) {
	s.logger.Info("Making data source ready", "data_source", ds.ID)

	if _, err := s.sample.Sample(ctx, ds, true); err != nil {
		return false, err
	}
	if _, err := s.stats.ColumnStats(ctx, ds, true); err != nil {
		return false, err
	}
	// Outlier detection needs the quartiles and value counts that the
	// column stats step may have just produced; re-read rather than assume
	// our own writes are visible through every read path.
	if err := s.refreshMeta(ctx, ds); err != nil {
		return false, err
	}
	if _, err := s.outliers.Outliers(ctx, ds, true); err != nil {
		return false, err
	}
	if _, err := s.stats.Details(ctx, ds, true); err != nil {
		return false, err
	}
	if err := s.refreshMeta(ctx, ds); err != nil {
		return false, err
	}

	if err := s.EnsureReady(ctx, ds); err != nil {
		return false, err
	}

	if err := s.SetStatus(ctx, ds, models.StatusReady); err != nil {
		return false, err
	}
	if err := s.removeHealthTag(ctx, ds, HealthTagNotReady); err != nil {
		return false, err
	}
	s.logger.Info("Data source is ready", "data_source", ds.ID)
	return true, nil
}

// refreshMeta re-resolves the declared schema from the catalog.
func (s *readinessService) refreshMeta(ctx context.Context, ds *models.DataSource) error {
	if s.schemas == nil {
		return nil
	}
	schema, err := s.schemas.ColumnTypes(ctx, ds.ID)
	if err != nil {
		return err
	}
	ds.Schema = schema
	return nil
}

// Status returns the persisted entity status, defaulting to not_ready.
func (s *readinessService) Status(ctx context.Context, ds *models.DataSource) (models.Status, error) {
	raw, ok, err := s.store.Get(ctx, ds.ID, statusKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageFailed, "failed to read status")
	}
	if !ok {
		return models.StatusNotReady, nil
	}
	return models.Status(raw), nil
}

// SetStatus persists the entity status.
func (s *readinessService) SetStatus(ctx context.Context, ds *models.DataSource, status models.Status) error {
	if err := s.store.Set(ctx, ds.ID, statusKey, string(status)); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to persist status")
	}
	return nil
}

// HealthTags returns the persisted health tags.
func (s *readinessService) HealthTags(ctx context.Context, ds *models.DataSource) ([]string, error) {
	raw, ok, err := s.store.Get(ctx, ds.ID, healthTagsKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageFailed, "failed to read health tags")
	}
	if !ok {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to decode health tags")
	}
	return tags, nil
}

func (s *readinessService) removeHealthTag(ctx context.Context, ds *models.DataSource, tag string) error {
	tags, err := s.HealthTags(ctx, ds)
	if err != nil {
		return err
	}
	kept := tags[:0]
	for _, t := range tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tags) {
		return nil
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode health tags")
	}
	if err := s.store.Set(ctx, ds.ID, healthTagsKey, string(raw)); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to persist health tags")
	}
	return nil
}

// AddHealthTag records a health tag for the data source, without duplicates.
func (s *readinessService) AddHealthTag(ctx context.Context, ds *models.DataSource, tag string) error {
	tags, err := s.HealthTags(ctx, ds)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if t == tag {
			return nil
		}
	}
	raw, err := json.Marshal(append(tags, tag))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode health tags")
	}
	if err := s.store.Set(ctx, ds.ID, healthTagsKey, string(raw)); err != nil {
		return errors.Wrap(err, errors.CodeStorageFailed, "failed to persist health tags")
	}
	return nil
}
