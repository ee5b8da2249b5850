package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/stream"
)

// recordPublisher abstracts where simulated records go.
type recordPublisher interface {
	Publish(ctx context.Context, rec drift.Record) error
	Close() error
}

// stdoutPublisher prints records as JSON lines, one per record.
type stdoutPublisher struct{}

func (stdoutPublisher) Publish(_ context.Context, rec drift.Record) error {
	payload := make(map[string]any, len(rec.Features)+1)
	for name, v := range rec.Features {
		payload[name] = v
	}
	payload["timestamp"] = rec.Timestamp.Format(time.RFC3339)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}

func (stdoutPublisher) Close() error { return nil }

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic feature records to Kafka",
	Long: `Generate gaussian feature records and publish them to a Kafka topic,
optionally mean-shifted to induce drift. Pairs with the monitor command
for end-to-end demos.

Examples:
  driftwatch simulate --count 1000                 # baseline traffic
  driftwatch simulate --count 1000 --shift 0.8     # drifted traffic
  driftwatch simulate --count 10 --stdout          # inspect payloads`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	simulateCmd.Flags().String("topic", "drift-data", "Kafka topic to publish to")
	simulateCmd.Flags().StringSlice("features", nil, "Feature names (default feature1..feature5)")
	simulateCmd.Flags().Float64("mean", 0, "Distribution mean")
	simulateCmd.Flags().Float64("stddev", 1, "Distribution standard deviation")
	simulateCmd.Flags().Float64("shift", 0, "Mean shift to simulate drift")
	simulateCmd.Flags().Int("count", 0, "Records to publish (0 runs until interrupted)")
	simulateCmd.Flags().Duration("interval", 10*time.Millisecond, "Pause between records")
	simulateCmd.Flags().Int64("seed", 42, "Random seed")
	simulateCmd.Flags().Bool("stdout", false, "Print JSON payloads instead of publishing to Kafka")

	viper.BindPFlag("kafka.brokers", simulateCmd.Flags().Lookup("brokers"))
	viper.BindPFlag("kafka.topic", simulateCmd.Flags().Lookup("topic"))
}

func runSimulate(cmd *cobra.Command, args []string) error {
	features, _ := cmd.Flags().GetStringSlice("features")
	mean, _ := cmd.Flags().GetFloat64("mean")
	stddev, _ := cmd.Flags().GetFloat64("stddev")
	shift, _ := cmd.Flags().GetFloat64("shift")
	count, _ := cmd.Flags().GetInt("count")
	interval, _ := cmd.Flags().GetDuration("interval")
	seed, _ := cmd.Flags().GetInt64("seed")

	gen := stream.NewGenerator(stream.GeneratorConfig{
		Features: features,
		Mean:     mean,
		StdDev:   stddev,
		Shift:    shift,
		Count:    count,
		Interval: interval,
		Seed:     seed,
	})

	var pub recordPublisher
	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		pub = stdoutPublisher{}
	} else {
		brokers := viper.GetStringSlice("kafka.brokers")
		topic := viper.GetString("kafka.topic")
		pub = stream.NewKafkaPublisher(brokers, topic)
		fmt.Printf("📤 Publishing to %v topic %q", brokers, topic)
		if shift != 0 {
			fmt.Printf(" with mean shift %.2f", shift)
		}
		fmt.Println()
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	published := 0
	for {
		rec, err := gen.Receive(ctx)
		if err != nil {
			break
		}
		if err := pub.Publish(ctx, rec); err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("publish record: %w", err)
		}
		published++
		if published%500 == 0 {
			fmt.Printf("   %d records published\n", published)
		}
	}

	fmt.Printf("✅ Published %d records\n", published)
	return nil
}
