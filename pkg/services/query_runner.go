package services

import (
	"context"

	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories"
)

// queryRunner issues synthesized queries through the injected executor and
// records the scanned-cost hint. Shared by every service that hits the
// remote engine.
type queryRunner struct {
	executor repositories.QueryExecutor
	logger   Logger
	metrics  metrics.Collector
}

// run executes one query, logging the scanned-cost hint on success.
func (q *queryRunner) run(ctx context.Context, sql string) (*models.TabularResult, error) {
	timer := q.metrics.StartTimer("query_duration_seconds")
	result, err := q.executor.Execute(ctx, sql)
	elapsed := timer.Stop()

	if err != nil {
		q.metrics.IncrementCounter("query_errors_total")
		q.logger.Error("Query execution failed", "error", err, "query", sql)
		return nil, err
	}

	q.metrics.IncrementCounter("queries_total")
	q.metrics.RecordHistogram("query_duration_seconds", elapsed)
	if result.ScannedBytes > 0 {
		q.metrics.AddCounter("scanned_bytes_total", float64(result.ScannedBytes))
	}
	q.logger.Info("Query successful",
		"rows", result.NumRows(),
		"scanned_bytes", result.ScannedBytes)

	return result, nil
}
