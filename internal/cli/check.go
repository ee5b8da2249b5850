package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/driftwatch/driftwatch/internal/drift"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "One-shot PSI comparison of two datasets",
	Long: `Compare a current dataset against a reference dataset feature by
feature and print the PSI score and drift classification for each shared
column. No window, no stream: a single batch comparison.

Exits non-zero with --fail-on-drift when any feature reaches the given
severity, for use in CI pipelines and batch validation jobs.

Examples:
  driftwatch check --reference data/train.csv --current data/serving.csv
  driftwatch check --reference a.csv --current b.csv --fail-on-drift likely_drift`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("reference", "", "Reference dataset CSV (required)")
	checkCmd.Flags().String("current", "", "Current dataset CSV (required)")
	checkCmd.MarkFlagRequired("reference")
	checkCmd.MarkFlagRequired("current")

	checkCmd.Flags().Int("num-buckets", 10, "Number of quantile buckets for PSI")
	checkCmd.Flags().Float64("psi-no-drift", 0.1, "PSI below this is No Drift")
	checkCmd.Flags().Float64("psi-possible-drift", 0.25, "PSI above this is Likely Drift")
	checkCmd.Flags().String("fail-on-drift", "", "Exit non-zero at this severity (possible_drift or likely_drift)")

	viper.BindPFlag("engine.num_buckets", checkCmd.Flags().Lookup("num-buckets"))
	viper.BindPFlag("engine.psi_no_drift_threshold", checkCmd.Flags().Lookup("psi-no-drift"))
	viper.BindPFlag("engine.psi_possible_drift_threshold", checkCmd.Flags().Lookup("psi-possible-drift"))
}

func runCheck(cmd *cobra.Command, args []string) error {
	refPath, _ := cmd.Flags().GetString("reference")
	curPath, _ := cmd.Flags().GetString("current")

	ref, err := drift.LoadReferenceCSV("reference", refPath)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	cur, err := drift.LoadReferenceCSV("current", curPath)
	if err != nil {
		return fmt.Errorf("load current data: %w", err)
	}

	cfg := engineConfig()
	failAt := drift.Status(-1)
	switch s, _ := cmd.Flags().GetString("fail-on-drift"); s {
	case "":
	case "possible_drift":
		failAt = drift.PossibleDrift
	case "likely_drift":
		failAt = drift.LikelyDrift
	default:
		return fmt.Errorf("unknown --fail-on-drift value %q", s)
	}

	fmt.Printf("🔍 Comparing %s against %s\n\n", curPath, refPath)
	fmt.Printf("%-24s %10s  %s\n", "FEATURE", "PSI", "STATUS")

	worst := drift.NoDrift
	compared := 0
	for _, feature := range ref.Features() {
		sample := cur.Column(feature)
		if sample == nil {
			fmt.Printf("%-24s %10s  %s\n", feature, "-", "missing from current")
			continue
		}

		spec, err := drift.BuildBuckets(feature, ref.Column(feature), cfg.NumBuckets)
		if err != nil {
			return fmt.Errorf("buckets for %q: %w", feature, err)
		}
		psi, _, err := drift.ComputePSI(spec, ref.Column(feature), sample)
		if err != nil {
			return fmt.Errorf("psi for %q: %w", feature, err)
		}

		status := drift.Classify(psi, cfg.NoDriftThreshold, cfg.PossibleDriftThreshold)
		fmt.Printf("%-24s %10.4f  %s %s\n", feature, psi, statusIcon(status), status)
		if status > worst {
			worst = status
		}
		compared++
	}

	if compared == 0 {
		return fmt.Errorf("no shared numeric features between the datasets")
	}

	fmt.Printf("\nWorst: %s %s\n", statusIcon(worst), worst)
	if failAt >= 0 && worst >= failAt {
		return fmt.Errorf("drift detected at severity %s", worst.Label())
	}
	return nil
}

func statusIcon(s drift.Status) string {
	switch s {
	case drift.LikelyDrift:
		return "🚨"
	case drift.PossibleDrift:
		return "⚠️"
	default:
		return "✅"
	}
}
