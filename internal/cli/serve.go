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
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the drift engine behind the HTTP ingestion API only",
	Long: `Run the drift engine without a stream consumer. Records arrive solely
through POST /api/v1/records (and /records/batch); everything else works
exactly as in monitor mode: sliding window, periodic PSI checks, sinks.

Useful when producers push over HTTP instead of Kafka.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("reference", "", "Reference dataset CSV (required)")
	serveCmd.MarkFlagRequired("reference")

	bindEngineFlags(serveCmd)

	serveCmd.Flags().String("csv-log", "logs/psi_drift_log.csv", "CSV drift log path (empty disables)")
	serveCmd.Flags().String("webhook-url", "", "Alert webhook URL (empty disables)")

	serveCmd.Flags().String("host", "0.0.0.0", "HTTP API host")
	serveCmd.Flags().Int("port", 8090, "HTTP API port")
	serveCmd.Flags().Bool("auth", false, "Require JWT bearer tokens on ingestion")
	serveCmd.Flags().String("jwt-secret", "", "HMAC secret for JWT verification")
	serveCmd.Flags().Bool("rate-limit", false, "Enable request rate limiting")
	serveCmd.Flags().Int("rate-limit-rps", 100, "Requests per second when rate limiting")

	viper.BindPFlag("sinks.csv_log", serveCmd.Flags().Lookup("csv-log"))
	viper.BindPFlag("sinks.webhook_url", serveCmd.Flags().Lookup("webhook-url"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.auth", serveCmd.Flags().Lookup("auth"))
	viper.BindPFlag("server.jwt_secret", serveCmd.Flags().Lookup("jwt-secret"))
	viper.BindPFlag("server.rate_limit", serveCmd.Flags().Lookup("rate-limit"))
	viper.BindPFlag("server.rate_limit_rps", serveCmd.Flags().Lookup("rate-limit-rps"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	fmt.Println("🚀 Starting DriftWatch API server...")

	path, _ := cmd.Flags().GetString("reference")
	ref, err := drift.LoadReferenceCSV("reference", path)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	logger.Info("reference dataset loaded",
		zap.String("path", path),
		zap.Strings("features", ref.Features()))

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
		emitter.Register(sink.NewWebhook(url, drift.PossibleDrift))
	}

	eval, err := drift.NewEvaluator(engineConfig(), ref, emitter, logger)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}
	eval.SetInstrumentation(metrics)
	defer eval.Close()

	srvConfig := server.DefaultConfig()
	srvConfig.Host = viper.GetString("server.host")
	srvConfig.Port = viper.GetInt("server.port")
	srvConfig.EnableAuth = viper.GetBool("server.auth")
	srvConfig.JWTSecret = viper.GetString("server.jwt_secret")
	srvConfig.EnableRateLimit = viper.GetBool("server.rate_limit")
	srvConfig.RateLimitRPS = viper.GetInt("server.rate_limit_rps")

	if srvConfig.EnableAuth && srvConfig.JWTSecret == "" {
		return fmt.Errorf("--auth requires --jwt-secret")
	}

	srv := server.New(srvConfig, eval, results, logger)

	printMonitorConfig(eval.Config(), srvConfig)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	fmt.Printf("✅ API server started on %s:%d\n", srvConfig.Host, srvConfig.Port)
	fmt.Printf("📥 Ingest:  POST http://%s:%d/api/v1/records\n", srvConfig.Host, srvConfig.Port)
	fmt.Printf("📈 Metrics: http://%s:%d/metrics\n", srvConfig.Host, srvConfig.Port)
	fmt.Println()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http api: %w", err)
		}
	case sig := <-quit:
		fmt.Printf("\n🛑 Received signal: %v\n", sig)
	}

	fmt.Println("🔄 Shutting down...")
	eval.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	fmt.Println("✅ Server stopped")
	return nil
}
