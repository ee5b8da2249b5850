package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Real-time PSI drift detection over streamed feature data",
	Long: `DriftWatch monitors the distribution of streamed feature vectors against a
fixed reference dataset using the Population Stability Index (PSI).

Records accumulate in a bounded sliding window; every check interval the
window is compared per-feature against the reference and classified into
No Drift, Possible Drift or Likely Drift. Results fan out to structured
logs, a CSV drift log, Prometheus metrics and webhook alerts.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// initConfig wires viper: explicit config file, search paths, and
// DRIFTWATCH_* environment variable overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("driftwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
	}

	viper.SetEnvPrefix("DRIFTWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Printf("📁 Loaded configuration from: %s\n", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// engineConfig reads the drift engine settings from viper, falling back to
// the engine defaults.
func engineConfig() drift.Config {
	cfg := drift.DefaultConfig()
	if v := viper.GetInt("engine.window_size"); v > 0 {
		cfg.WindowSize = v
	}
	if viper.IsSet("engine.check_interval") {
		cfg.CheckInterval = viper.GetInt("engine.check_interval")
	}
	if v := viper.GetDuration("engine.check_every"); v > 0 {
		cfg.CheckEvery = v
	}
	if v := viper.GetInt("engine.min_samples"); v > 0 {
		cfg.MinSamples = v
	}
	if v := viper.GetInt("engine.num_buckets"); v > 0 {
		cfg.NumBuckets = v
	}
	if v := viper.GetFloat64("engine.psi_no_drift_threshold"); v > 0 {
		cfg.NoDriftThreshold = v
	}
	if v := viper.GetFloat64("engine.psi_possible_drift_threshold"); v > 0 {
		cfg.PossibleDriftThreshold = v
	}
	return cfg
}

// bindEngineFlags attaches the shared engine flags to a command and binds
// them to viper.
func bindEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("window-size", 1000, "Sliding window capacity in records")
	cmd.Flags().Int("check-interval", 100, "Run a drift check every N records (0 disables the count trigger)")
	cmd.Flags().Duration("check-every", 0, "Run a drift check on a wall-clock interval (0 disables)")
	cmd.Flags().Int("min-samples", 100, "Minimum window size before a check may run")
	cmd.Flags().Int("num-buckets", 10, "Number of quantile buckets for PSI")
	cmd.Flags().Float64("psi-no-drift", 0.1, "PSI below this is No Drift")
	cmd.Flags().Float64("psi-possible-drift", 0.25, "PSI above this is Likely Drift")

	viper.BindPFlag("engine.window_size", cmd.Flags().Lookup("window-size"))
	viper.BindPFlag("engine.check_interval", cmd.Flags().Lookup("check-interval"))
	viper.BindPFlag("engine.check_every", cmd.Flags().Lookup("check-every"))
	viper.BindPFlag("engine.min_samples", cmd.Flags().Lookup("min-samples"))
	viper.BindPFlag("engine.num_buckets", cmd.Flags().Lookup("num-buckets"))
	viper.BindPFlag("engine.psi_no_drift_threshold", cmd.Flags().Lookup("psi-no-drift"))
	viper.BindPFlag("engine.psi_possible_drift_threshold", cmd.Flags().Lookup("psi-possible-drift"))
}
