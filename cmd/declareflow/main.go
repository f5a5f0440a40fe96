// DeclareFlow - Object-centric Declare constraint discovery
// Discovers and checks OC-Declare constraints over OCEL 2.0 event logs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/declareflow/declareflow/pkg/config"
	"github.com/declareflow/declareflow/pkg/declare"
	"github.com/declareflow/declareflow/pkg/export"
	"github.com/declareflow/declareflow/pkg/ocel"
	"github.com/declareflow/declareflow/pkg/plugin"
	"github.com/declareflow/declareflow/pkg/render"
	"github.com/declareflow/declareflow/pkg/telemetry"
	"github.com/declareflow/declareflow/pkg/tui"
)

var (
	version = "0.1.1"
	commit  = "dev"
)

// CLI flags
var (
	inputFile       string
	outputFile      string
	outputFormat    string
	compressionFlag string
	verbose         bool

	// Discover flags
	thresholdFlag   float64
	o2oModeFlag     string
	actsFlag        []string
	conformanceFlag bool
	workersFlag     int

	// Check/create flags
	constraintsFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "declareflow",
	Short: "DeclareFlow - Discover and check OC-Declare constraints",
	Long: `DeclareFlow discovers object-centric Declare constraints from OCEL 2.0
event logs and checks conformance of existing constraint sets.

Constraints relate pairs of activities through five temporal relations
(AS, EF, EP, DF, DP), quantified over the object instances shared by
their events (All, Each, Any).`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			tui.PrintHeader(version)
		}
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover constraints from an event log",
	Long: `Discover OC-Declare constraints from an OCEL 2.0 JSON event log.

For every ordered activity pair, the strongest constraint per relation
kind whose support clears the threshold is retained, with count bounds
derived from the observed occurrences.

Examples:
  declareflow discover -i orders.json
  declareflow discover -i orders.json --threshold 0.5 --o2o-mode Direct
  declareflow discover -i orders.json --acts "Place Order,Ship Order"
  declareflow discover -i orders.json -o constraints.parquet --output parquet`,
	RunE: runDiscover,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Discover command flags
	discoverCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input OCEL JSON file (required)")
	discoverCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Output file path (stdout table if omitted)")
	discoverCmd.Flags().StringVar(&outputFormat, "output", "table", "Output format (table, json, parquet, xlsx)")
	discoverCmd.Flags().Float64Var(&thresholdFlag, "threshold", 0, "Support threshold in (0, 1] (default from config)")
	discoverCmd.Flags().StringVar(&o2oModeFlag, "o2o-mode", "", "Object-to-object resolution (None, Direct, Reversed, Bidirectional)")
	discoverCmd.Flags().StringSliceVar(&actsFlag, "acts", nil, "Restrict discovery to these activities")
	discoverCmd.Flags().BoolVar(&conformanceFlag, "check-conformance", false, "Score retained constraints against their bounds")
	discoverCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Parallel pair evaluations (0 = auto)")
	discoverCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (snappy, gzip, zstd)")
	discoverCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	view, err := loadView(inputFile)
	if err != nil {
		return err
	}

	threshold := thresholdFlag
	if threshold == 0 {
		threshold = cfg.Discovery.Threshold
	}
	o2oMode := o2oModeFlag
	if o2oMode == "" {
		o2oMode = cfg.Discovery.O2OMode
	}
	workers := workersFlag
	if workers == 0 {
		workers = cfg.Discovery.Workers
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdown, span := startSpan(ctx, cfg, "discover",
		attribute.Float64("declareflow.threshold", threshold),
		attribute.String("declareflow.o2o_mode", o2oMode),
	)
	defer shutdown()

	acts := actsFlag
	if len(acts) == 0 {
		acts = view.Activities()
	}
	pairs := len(acts) * (len(acts) - 1)

	var bar interface{ Add(int) error }
	input := plugin.DiscoverInput{
		Threshold:        threshold,
		ActsToUse:        actsFlag,
		O2OMode:          o2oMode,
		CheckConformance: conformanceFlag || cfg.Engine.CheckConformance,
		Workers:          workers,
	}
	if verbose {
		pb := tui.ShowProgress(int64(pairs), "Evaluating pairs")
		bar = pb
		input.OnProgress = func(done, total int) {
			pb.Add(1)
		}
	}

	start := time.Now()
	set, err := plugin.NewEngine().Discover(ctx, view, input)
	elapsed := time.Since(start)
	if bar != nil {
		tui.ClearLine()
	}
	if err != nil {
		span(0, err)
		return err
	}
	span(set.Len(), nil)

	if verbose {
		tui.PrintDiscoveryReport(&tui.DiscoveryReport{
			Activities:  len(acts),
			Pairs:       pairs,
			Constraints: set.Len(),
			Duration:    elapsed,
		})
	}

	return writeSet(set, cfg)
}

// loadConfig loads the layered configuration, tolerating a missing file.
func loadConfig() *config.Config {
	mgr := config.Global()
	if err := mgr.Load(); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: config load failed: %v\n", err)
	}
	return mgr.Get()
}

// loadView parses an OCEL JSON log and builds the evaluation view.
func loadView(path string) (*ocel.View, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	log, err := ocel.NewParser().ParseFile(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log: %w", err)
	}

	if verbose {
		fmt.Printf("Loaded %d events, %d objects\n", len(log.Events), len(log.Objects))
	}

	return ocel.NewView(log), nil
}

// writeSet renders the result set to the selected output.
func writeSet(set *declare.Set, cfg *config.Config) error {
	compression := compressionFlag
	if compression == "" {
		compression = cfg.Export.Compression
	}

	switch strings.ToLower(outputFormat) {
	case "", "table":
		if outputFile == "" {
			fmt.Println(render.Table(set))
			return nil
		}
		return os.WriteFile(outputFile, []byte(render.Table(set)+"\n"), 0644)

	case "json":
		data, err := json.MarshalIndent(set.Constraints, "", "  ")
		if err != nil {
			return err
		}
		if outputFile == "" {
			fmt.Println(string(data))
			return nil
		}
		return os.WriteFile(outputFile, data, 0644)

	case "parquet":
		if outputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		return export.WriteParquetFile(outputFile, set, export.ParquetConfig{Compression: compression})

	case "xlsx":
		if outputFile == "" {
			return fmt.Errorf("xlsx output requires --output-file")
		}
		return export.WriteXLSX(outputFile, set)

	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// startSpan initializes OTLP tracing when enabled and opens a span around
// the operation. Both returns are usable no-ops when telemetry is off.
func startSpan(ctx context.Context, cfg *config.Config, operation string, attrs ...attribute.KeyValue) (func(), func(constraints int, err error)) {
	if !cfg.Telemetry.Enabled {
		return func() {}, func(int, error) {}
	}

	otlpCfg := telemetry.DefaultOTLPConfig("declareflow")
	otlpCfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		otlpCfg.Endpoint = cfg.Telemetry.Endpoint
	}

	exporter := telemetry.NewOTLPExporter(otlpCfg)
	shutdownFn, err := exporter.Init(ctx)
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
		return func() {}, func(int, error) {}
	}

	_, end := exporter.StartPass(ctx, operation, attrs...)

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownFn(shutdownCtx); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "Warning: telemetry shutdown failed: %v\n", err)
		}
	}
	return shutdown, end
}
