// Package main provides the entry point for the data source profiler CLI.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sdidier-dev/sageworks/cmd/profiler/config"
	"github.com/sdidier-dev/sageworks/pkg/artifacts"
	"github.com/sdidier-dev/sageworks/pkg/infrastructure/metrics"
	"github.com/sdidier-dev/sageworks/pkg/models"
	"github.com/sdidier-dev/sageworks/pkg/repositories/duckdb"
	"github.com/sdidier-dev/sageworks/pkg/repositories/memory"
	"github.com/sdidier-dev/sageworks/pkg/services"

	_ "github.com/marcboeker/go-duckdb/v2"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "profiler",
	Short: "Data source profiler",
	Long: `Profile tabular data sources behind a SQL query engine.

The profiler computes samples, quartiles, value counts, column statistics and
outliers as cached derived artifacts attached to a data source.`,
}

func init() {
	rootCmd.PersistentFlags().String("database", "", "DuckDB database path")
	rootCmd.PersistentFlags().String("table", "", "table to profile")
	rootCmd.PersistentFlags().String("id", "", "data source id (defaults to the table name)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("query-timeout", 5*time.Minute, "overall query timeout")
	rootCmd.PersistentFlags().Float64("scale", services.DefaultScale, "IQR multiplier for outlier bounds")
	rootCmd.PersistentFlags().Bool("include-categorical", false, "include categorical columns in outlier detection")
	rootCmd.PersistentFlags().Int("max-categorical-values", services.DefaultMaxCategoricalValues, "distinct-value cap per categorical column")
	rootCmd.PersistentFlags().Int("sample-rows", services.DefaultSampleRows, "sample size cap")
	rootCmd.PersistentFlags().Bool("metrics", false, "enable Prometheus metrics")
	rootCmd.PersistentFlags().String("metrics-address", ":9090", "metrics server address")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("PROFILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(profileCmd, statsCmd, outliersCmd, sampleCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("profiler %s (commit %s, built %s)\n", version, commit, buildDate)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Run the full readiness sequence for a data source",
	Long: `Run the blocking make-ready sequence: sample, column statistics,
outliers and details, leaving every derived artifact cached.

Example:
  profiler profile --database ./data.db --table abalone_data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(ctx context.Context, st *stack) error {
			ok, err := st.readiness.MakeReady(ctx, st.ds)
			if err != nil {
				return err
			}
			status, statusErr := st.readiness.Status(ctx, st.ds)
			if statusErr != nil {
				return statusErr
			}
			return printJSON(map[string]interface{}{
				"data_source": st.ds.ID,
				"ready":       ok,
				"status":      status,
			})
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute column statistics for a data source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(ctx context.Context, st *stack) error {
			stats, err := st.stats.ColumnStats(ctx, st.ds, false)
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

var outliersCmd = &cobra.Command{
	Use:   "outliers",
	Short: "Detect outlier rows for a data source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(ctx context.Context, st *stack) error {
			outliers, err := st.outliers.Outliers(ctx, st.ds, false)
			if err != nil {
				return err
			}
			return printJSON(outliers)
		})
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Pull a bounded representative sample from a data source",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(func(ctx context.Context, st *stack) error {
			sample, err := st.sample.Sample(ctx, st.ds, false)
			if err != nil {
				return err
			}
			return printJSON(sample)
		})
	},
}

// stack is the wired profiling engine for one CLI invocation.
type stack struct {
	ds        *models.DataSource
	stats     services.StatisticsService
	outliers  services.OutlierService
	sample    services.SampleService
	readiness services.ReadinessService
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Database = viper.GetString("database")
	cfg.Table = viper.GetString("table")
	cfg.DataSourceID = viper.GetString("id")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.QueryTimeout = viper.GetDuration("query-timeout")
	cfg.Scale = viper.GetFloat64("scale")
	cfg.IncludeCategorical = viper.GetBool("include-categorical")
	cfg.MaxCategoricalValues = viper.GetInt("max-categorical-values")
	cfg.SampleRows = viper.GetInt("sample-rows")
	cfg.Metrics.Enabled = viper.GetBool("metrics")
	cfg.Metrics.Address = viper.GetString("metrics-address")

	if cfg.DataSourceID == "" {
		cfg.DataSourceID = cfg.Table
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(parsed).
		With().Timestamp().Logger()
}

// withStack wires the engine from configuration, runs fn, and tears down.
func withStack(fn func(ctx context.Context, st *stack) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	zlog := newLogger(cfg.LogLevel)
	logger := &loggerAdapter{logger: zlog}

	var collector metrics.Collector = metrics.NewNoOpCollector()
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
		server := metrics.NewMetricsServer(cfg.Metrics.Address)
		go func() {
			if err := server.Start(); err != nil {
				zlog.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
		defer func() {
			if err := server.Stop(); err != nil {
				zlog.Error().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	db, err := sql.Open("duckdb", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()

	schemas := duckdb.NewSchemaRepository(db, map[string]string{cfg.DataSourceID: cfg.Table}, zlog)
	schema, err := schemas.ColumnTypes(ctx, cfg.DataSourceID)
	if err != nil {
		return err
	}

	ds := &models.DataSource{ID: cfg.DataSourceID, Table: cfg.Table, Schema: schema}
	executor := duckdb.NewQueryRepository(db, zlog)
	store := memory.NewMetadataStore()
	cache := artifacts.NewCache(store)

	detectorOpts := services.DetectorOptions{
		Scale:                cfg.Scale,
		IncludeCategorical:   cfg.IncludeCategorical,
		MaxCategoricalValues: cfg.MaxCategoricalValues,
	}

	stats := services.NewStatisticsService(executor, cache, cfg.MaxCategoricalValues, logger, collector)
	outliers := services.NewOutlierService(executor, cache, stats, detectorOpts, logger, collector)
	sample := services.NewSampleService(executor, cache, stats, outliers, cfg.SampleRows, logger, collector)
	readiness := services.NewReadinessService(cache, store, schemas, sample, stats, outliers, logger, collector)

	return fn(ctx, &stack{
		ds:        ds,
		stats:     stats,
		outliers:  outliers,
		sample:    sample,
		readiness: readiness,
	})
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
