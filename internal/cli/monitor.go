package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/server"
	"github.com/driftwatch/driftwatch/internal/sink"
	"github.com/driftwatch/driftwatch/internal/stream"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Consume a record stream and monitor it for distribution drift",
	Long: `Consume feature records from Kafka (or a built-in synthetic source),
maintain a sliding window of recent observations, and periodically compare
the window against the reference dataset using PSI.

Classified results are fanned out to the configured sinks: structured logs,
a CSV drift log, Prometheus metrics and an optional alert webhook. An HTTP
API serves recent results, engine status and /metrics alongside the stream.

Examples:
  driftwatch monitor --reference data/batch_normal.csv --brokers localhost:9092
  driftwatch monitor --synthetic --synthetic-shift 0.5      # broker-less demo
  driftwatch monitor --check-interval 200 --min-samples 250`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	// Stream configuration
	monitorCmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	monitorCmd.Flags().String("topic", "drift-data", "Kafka topic to consume")
	monitorCmd.Flags().String("group", "driftwatch", "Kafka consumer group ID")
	monitorCmd.Flags().Bool("synthetic", false, "Use the built-in synthetic source instead of Kafka")
	monitorCmd.Flags().Float64("synthetic-shift", 0, "Mean shift applied by the synthetic source")
	monitorCmd.Flags().Int64("seed", 42, "Seed for synthetic data")

	// Reference data
	monitorCmd.Flags().String("reference", "", "Reference dataset CSV (synthetic reference when empty)")
	monitorCmd.Flags().Int("reference-samples", 1000, "Rows drawn for a synthetic reference")
	monitorCmd.Flags().StringSlice("features", nil, "Tracked feature names (inferred from the reference when empty)")

	// Engine
	bindEngineFlags(monitorCmd)

	// Sinks
	monitorCmd.Flags().String("csv-log", "logs/psi_drift_log.csv", "CSV drift log path (empty disables)")
	monitorCmd.Flags().String("webhook-url", "", "Alert webhook URL (empty disables)")
	monitorCmd.Flags().String("webhook-min-status", "possible_drift", "Lowest severity that triggers an alert (possible_drift or likely_drift)")

	// HTTP API
	monitorCmd.Flags().String("host", "0.0.0.0", "HTTP API host")
	monitorCmd.Flags().Int("port", 8090, "HTTP API port")

	viper.BindPFlag("kafka.brokers", monitorCmd.Flags().Lookup("brokers"))
	viper.BindPFlag("kafka.topic", monitorCmd.Flags().Lookup("topic"))
	viper.BindPFlag("kafka.group", monitorCmd.Flags().Lookup("group"))
	viper.BindPFlag("sinks.csv_log", monitorCmd.Flags().Lookup("csv-log"))
	viper.BindPFlag("sinks.webhook_url", monitorCmd.Flags().Lookup("webhook-url"))
	viper.BindPFlag("server.host", monitorCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", monitorCmd.Flags().Lookup("port"))
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	fmt.Println("🔍 Starting DriftWatch monitor...")

	seed, _ := cmd.Flags().GetInt64("seed")
	features, _ := cmd.Flags().GetStringSlice("features")

	// Reference dataset: recorded baseline or a synthetic one for demos.
	ref, err := loadReference(cmd, features, seed)
	if err != nil {
		return err
	}
	logger.Info("reference dataset loaded",
		zap.String("name", ref.Name()),
		zap.Strings("features", ref.Features()))

	// Sinks
	emitter := drift.NewEmitter(logger, sink.NewLog(logger))
	metrics := sink.NewMetrics(nil)
	emitter.Register(metrics)

	results := sink.NewMemory(1000)
	emitter.Register(results)

	if path := viper.GetString("sinks.csv_log"); path != "" {
		csvLog, err := sink.NewCSVLog(path)
		if err != nil {
			return fmt.Errorf("open csv drift log: %w", err)
		}
		defer csvLog.Close()
		emitter.Register(csvLog)
	}

	if url := viper.GetString("sinks.webhook_url"); url != "" {
		minStatus := drift.PossibleDrift
		if s, _ := cmd.Flags().GetString("webhook-min-status"); s == "likely_drift" {
			minStatus = drift.LikelyDrift
		}
		emitter.Register(sink.NewWebhook(url, minStatus))
	}

	// Engine
	eval, err := drift.NewEvaluator(engineConfig(), ref, emitter, logger)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}
	eval.SetInstrumentation(metrics)

	// Record source
	src, err := buildSource(cmd, ref.Features(), seed, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	// HTTP API
	srvConfig := server.DefaultConfig()
	srvConfig.Host = viper.GetString("server.host")
	srvConfig.Port = viper.GetInt("server.port")
	srv := server.New(srvConfig, eval, results, logger)

	printMonitorConfig(eval.Config(), srvConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- fmt.Errorf("http api: %w", err)
		}
	}()
	go func() {
		errChan <- eval.Run(ctx, src)
	}()

	fmt.Printf("✅ Monitor started\n")
	fmt.Printf("📈 Metrics: http://%s:%d/metrics\n", srvConfig.Host, srvConfig.Port)
	fmt.Printf("📚 API:     http://%s:%d/api/v1\n", srvConfig.Host, srvConfig.Port)
	fmt.Println()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("monitor stopped", zap.Error(err))
		}
	case sig := <-quit:
		fmt.Printf("\n🛑 Received signal: %v\n", sig)
	}

	fmt.Println("🔄 Shutting down...")
	cancel()
	eval.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	fmt.Println("✅ Monitor stopped")
	return nil
}

// loadReference loads the reference CSV, or draws a synthetic reference when
// no file is configured.
func loadReference(cmd *cobra.Command, features []string, seed int64) (*drift.ReferenceDataset, error) {
	if path, _ := cmd.Flags().GetString("reference"); path != "" {
		ref, err := drift.LoadReferenceCSV("reference", path)
		if err != nil {
			return nil, fmt.Errorf("load reference data: %w", err)
		}
		return ref, nil
	}

	n, _ := cmd.Flags().GetInt("reference-samples")
	gen := stream.NewGenerator(stream.GeneratorConfig{Features: features, Seed: seed})
	return drift.NewReferenceDataset("synthetic", gen.ReferenceColumns(n))
}

// buildSource picks the record stream: Kafka by default, the synthetic
// generator with --synthetic.
func buildSource(cmd *cobra.Command, features []string, seed int64, logger *zap.Logger) (drift.Stream, error) {
	if synthetic, _ := cmd.Flags().GetBool("synthetic"); synthetic {
		shift, _ := cmd.Flags().GetFloat64("synthetic-shift")
		return stream.NewGenerator(stream.GeneratorConfig{
			Features: features,
			Shift:    shift,
			Interval: 10 * time.Millisecond,
			Seed:     seed + 1,
		}), nil
	}

	src, err := stream.NewKafkaSource(stream.KafkaConfig{
		Brokers:  viper.GetStringSlice("kafka.brokers"),
		Topic:    viper.GetString("kafka.topic"),
		GroupID:  viper.GetString("kafka.group"),
		Features: features,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka source: %w", err)
	}
	return src, nil
}

// printMonitorConfig prints the effective configuration summary.
func printMonitorConfig(cfg drift.Config, srvConfig *server.Config) {
	fmt.Println("\n📋 Engine Configuration:")
	fmt.Printf("   Window Size:    %d\n", cfg.WindowSize)
	fmt.Printf("   Check Interval: %d records\n", cfg.CheckInterval)
	if cfg.CheckEvery > 0 {
		fmt.Printf("   Check Every:    %v\n", cfg.CheckEvery)
	}
	fmt.Printf("   Min Samples:    %d\n", cfg.MinSamples)
	fmt.Printf("   Buckets:        %d\n", cfg.NumBuckets)
	fmt.Printf("   Thresholds:     no-drift < %.2f <= possible <= %.2f < likely\n",
		cfg.NoDriftThreshold, cfg.PossibleDriftThreshold)
	fmt.Printf("   API:            %s:%d\n", srvConfig.Host, srvConfig.Port)
	fmt.Println()
}
