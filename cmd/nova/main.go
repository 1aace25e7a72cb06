package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/internal/pipeline"
	"github.com/ajitpratap0/nova/pkg/config"
	"github.com/ajitpratap0/nova/pkg/connector/registry"
	"github.com/ajitpratap0/nova/pkg/logger"

	// Import all available connectors to register them
	_ "github.com/ajitpratap0/nova/pkg/connector/destinations/csv"
	_ "github.com/ajitpratap0/nova/pkg/connector/destinations/json"
	_ "github.com/ajitpratap0/nova/pkg/connector/sources/applovin"
)

var version = "0.1.0"

// SystemFlags contains optional system-level configuration.
type SystemFlags struct {
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	Timeout       time.Duration
	LogLevel      string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "nova",
		Short: "Nova - Report extraction and loading engine",
		Long: `Nova extracts advertising performance reports from upstream APIs and
loads them into file or downstream destinations with minimal configuration.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Nova v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
			fmt.Println("\nAvailable Destination Connectors:")
			for _, dest := range registry.ListDestinations() {
				fmt.Printf("  - %s\n", dest)
			}
		},
	})

	var sourceConfigFile, destConfigFile string
	flags := &SystemFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an extraction pipeline",
		Long: `Run an extraction pipeline with the specified source and destination
configurations. Configuration files are YAML with ${VAR} environment
variable substitution.

Example:
  nova run --source applovin.yaml --destination csv.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(sourceConfigFile, destConfigFile, flags)
		},
	}

	runCmd.Flags().StringVarP(&sourceConfigFile, "source", "s", "", "Path to source configuration file (required)")
	runCmd.Flags().StringVarP(&destConfigFile, "destination", "d", "", "Path to destination configuration file (required)")
	_ = runCmd.MarkFlagRequired("source")
	_ = runCmd.MarkFlagRequired("destination")

	runCmd.Flags().IntVar(&flags.BatchSize, "batch-size", 1000, "Number of records per batch")
	runCmd.Flags().IntVar(&flags.Workers, "workers", runtime.NumCPU(), "Number of worker threads for parallel processing")
	runCmd.Flags().DurationVar(&flags.Timeout, "timeout", 30*time.Minute, "Pipeline timeout")
	runCmd.Flags().DurationVar(&flags.FlushInterval, "flush-interval", 10*time.Second, "Time interval for periodic batch flushing")
	runCmd.Flags().StringVar(&flags.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfigFromFile(filename string) (*config.BaseConfig, error) {
	var cfg config.BaseConfig
	if err := config.Load(filename, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", filename, err)
	}
	return &cfg, nil
}

func runPipeline(sourceConfigFile, destConfigFile string, flags *SystemFlags) error {
	sourceConfig, err := loadConfigFromFile(sourceConfigFile)
	if err != nil {
		return fmt.Errorf("source configuration error: %w", err)
	}

	destConfig, err := loadConfigFromFile(destConfigFile)
	if err != nil {
		return fmt.Errorf("destination configuration error: %w", err)
	}

	if err := logger.Init(logger.Config{Level: flags.LogLevel, Encoding: "console"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().With(
		zap.String("component", "nova-cli"),
		zap.String("source", sourceConfig.Type),
		zap.String("destination", destConfig.Type),
	)

	log.Info("starting pipeline",
		zap.String("source_config", sourceConfigFile),
		zap.String("dest_config", destConfigFile),
		zap.Int("batch_size", flags.BatchSize),
		zap.Int("workers", flags.Workers))

	applySystemFlags(sourceConfig, flags)
	applySystemFlags(destConfig, flags)

	source, err := registry.CreateSource(sourceConfig.Type, sourceConfig)
	if err != nil {
		return fmt.Errorf("failed to create source connector %q: %w", sourceConfig.Type, err)
	}

	destination, err := registry.CreateDestination(destConfig.Type, destConfig)
	if err != nil {
		return fmt.Errorf("failed to create destination connector %q: %w", destConfig.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.Timeout)
	defer cancel()

	if err := source.Initialize(ctx, sourceConfig); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	if err := destination.Initialize(ctx, destConfig); err != nil {
		return fmt.Errorf("failed to initialize destination: %w", err)
	}

	pipelineConfig := &pipeline.PipelineConfig{
		BatchSize:       flags.BatchSize,
		WorkerCount:     flags.Workers,
		FlushInterval:   flags.FlushInterval,
		SourceName:      sourceConfig.Type,
		DestinationName: destConfig.Type,
	}

	simplePipeline := pipeline.NewSimplePipeline(source, destination, pipelineConfig, log)

	log.Info("executing pipeline")
	startTime := time.Now()

	if err := simplePipeline.Run(ctx); err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	duration := time.Since(startTime)
	stats := simplePipeline.Metrics()
	recordsProcessed := stats["records_processed"].(int64)

	log.Info("pipeline completed successfully",
		zap.Duration("duration", duration),
		zap.Int64("records_processed", recordsProcessed),
		zap.Float64("records_per_second", float64(recordsProcessed)/duration.Seconds()))

	if err := source.Close(ctx); err != nil {
		log.Warn("failed to close source", zap.Error(err))
	}
	if err := destination.Close(ctx); err != nil {
		log.Warn("failed to close destination", zap.Error(err))
	}

	return nil
}

func applySystemFlags(cfg *config.BaseConfig, flags *SystemFlags) {
	if flags.BatchSize > 0 {
		cfg.Performance.BatchSize = flags.BatchSize
	}
	if flags.Workers > 0 {
		cfg.Performance.Workers = flags.Workers
	}
}
