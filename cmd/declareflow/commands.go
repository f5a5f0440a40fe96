package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/declareflow/declareflow/pkg/config"
	"github.com/declareflow/declareflow/pkg/declare"
	"github.com/declareflow/declareflow/pkg/export"
	"github.com/declareflow/declareflow/pkg/ocel"
	"github.com/declareflow/declareflow/pkg/plugin"
	"github.com/declareflow/declareflow/pkg/tui"
)

// Additional CLI flags
var (
	// Stats flags
	jsonOutput bool
	dbPath     string
	starDir    string

	// Check flags
	checkO2OMode string

	// Config flags
	saveConfigFlag bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check constraint conformance against an event log",
	Long: `Check an existing constraint set against an OCEL 2.0 JSON event log.

Every constraint yields a result. Constraints that cannot be evaluated
keep an empty conformance value and carry their failure; they never abort
the rest of the batch.

The constraints file is YAML or JSON in the canonical schema, as produced
by 'declareflow discover --output json'.

Examples:
  declareflow check -i orders.json -c constraints.yaml
  declareflow check -i orders.json -c constraints.json --o2o-mode Direct
  declareflow check -i orders.json -c constraints.yaml -o results.xlsx --output xlsx`,
	RunE: runCheck,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build constraints from a definition file",
	Long: `Build a constraint set from manually authored definitions.

Definitions use the authoring schema: exactly one of any_objects,
all_objects or each_objects per constraint selects the quantifier, and
min/max each carry zero or one value. A structural problem in any
definition rejects the whole file.

Examples:
  declareflow create -i orders.json -c definitions.yaml
  declareflow create -i orders.json -c definitions.yaml --check-conformance`,
	RunE: runCreate,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display event log statistics",
	Long: `Show activity and object-type summaries for an OCEL 2.0 JSON log.

The log is staged into DuckDB and summarized with SQL aggregation. Pass
--db to keep the staged database for ad-hoc queries, or --star-dir to
flatten the staged log into star schema Parquet files for BI tools.

Examples:
  declareflow stats -i orders.json
  declareflow stats -i orders.json --json
  declareflow stats -i orders.json --db orders.db
  declareflow stats -i orders.json --star-dir ./star`,
	RunE: runStats,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging defaults, config files and
environment variables, along with the files it was loaded from.

Examples:
  declareflow config
  declareflow config --save`,
	RunE: runConfig,
}

func init() {
	// Check command flags
	checkCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input OCEL JSON file (required)")
	checkCmd.Flags().StringVarP(&constraintsFile, "constraints", "c", "", "Constraints file, YAML or JSON (required)")
	checkCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Output file path (stdout table if omitted)")
	checkCmd.Flags().StringVar(&outputFormat, "output", "table", "Output format (table, json, parquet, xlsx)")
	checkCmd.Flags().StringVar(&checkO2OMode, "o2o-mode", "None", "Object-to-object resolution (None, Direct, Reversed, Bidirectional)")
	checkCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (snappy, gzip, zstd)")
	checkCmd.MarkFlagRequired("input")
	checkCmd.MarkFlagRequired("constraints")

	// Create command flags
	createCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input OCEL JSON file (required)")
	createCmd.Flags().StringVarP(&constraintsFile, "constraints", "c", "", "Definitions file, YAML or JSON (required)")
	createCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Output file path (stdout table if omitted)")
	createCmd.Flags().StringVar(&outputFormat, "output", "table", "Output format (table, json, parquet, xlsx)")
	createCmd.Flags().BoolVar(&conformanceFlag, "check-conformance", false, "Score the built constraints against the log")
	createCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (snappy, gzip, zstd)")
	createCmd.MarkFlagRequired("input")
	createCmd.MarkFlagRequired("constraints")

	// Stats command flags
	statsCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input OCEL JSON file (required)")
	statsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	statsCmd.Flags().StringVar(&dbPath, "db", "", "Stage into this DuckDB file instead of memory")
	statsCmd.Flags().StringVar(&starDir, "star-dir", "", "Write star schema Parquet files to this directory")
	statsCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (snappy, gzip, zstd)")
	statsCmd.MarkFlagRequired("input")

	// Config command flags
	configCmd.Flags().BoolVar(&saveConfigFlag, "save", false, "Write the effective configuration to ~/.declareflow/config.yaml")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	mgr := config.Global()
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(mgr.Get())
	if err != nil {
		return err
	}
	fmt.Print(string(data))

	if paths := mgr.GetPaths(); len(paths) > 0 {
		fmt.Println("\nLoaded from:")
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
	} else {
		fmt.Println("\nLoaded from: defaults and environment only")
	}

	if saveConfigFlag {
		if err := mgr.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Println("Saved to ~/.declareflow/config.yaml")
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	mode, ok := ocel.ParseO2OMode(checkO2OMode)
	if !ok {
		return fmt.Errorf("unknown o2o mode: %s", checkO2OMode)
	}

	set, err := loadConstraintSet(constraintsFile)
	if err != nil {
		return err
	}

	view, err := loadView(inputFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdown, span := startSpan(ctx, cfg, "check",
		attribute.Int("declareflow.input_constraints", set.Len()),
	)
	defer shutdown()

	start := time.Now()
	report, err := declare.NewCheckerWithMode(mode).Check(ctx, view, set)
	elapsed := time.Since(start)
	if err != nil {
		span(0, err)
		return err
	}
	span(set.Len(), nil)

	if verbose {
		tui.PrintCheckReport(&tui.CheckReport{
			Constraints: len(report.Outcomes),
			Failures:    len(report.Failures()),
			Duration:    elapsed,
		})
	}

	for _, outcome := range report.Failures() {
		fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", outcome.Constraint.String(), outcome.Err)
	}

	return writeSet(set, cfg)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	input, err := loadCreateInput(constraintsFile)
	if err != nil {
		return err
	}
	input.CheckConformance = input.CheckConformance || conformanceFlag

	view, err := loadView(inputFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	set, report, err := plugin.NewEngine().CreateConstraints(ctx, view, input)
	if err != nil {
		return err
	}

	if report != nil {
		for _, outcome := range report.Failures() {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", outcome.Constraint.String(), outcome.Err)
		}
	}

	return writeSet(set, cfg)
}

func runStats(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log, err := ocel.NewParser().ParseFile(ctx, inputFile)
	if err != nil {
		return fmt.Errorf("failed to parse log: %w", err)
	}

	// Empty path stages into an in-memory DuckDB database.
	store, err := ocel.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := store.SaveLog(ctx, log); err != nil {
		return fmt.Errorf("failed to stage log: %w", err)
	}

	activities, err := store.Activities(ctx)
	if err != nil {
		return err
	}
	objectTypes, err := store.ObjectTypes(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := log.Stats()
		out["file"] = inputFile
		out["activity_summary"] = activities
		out["object_type_summary"] = objectTypes
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return exportStarSchema(ctx, store)
	}

	fmt.Printf("File:    %s\n", inputFile)
	fmt.Printf("Events:  %d\n", len(log.Events))
	fmt.Printf("Objects: %d\n", len(log.Objects))

	fmt.Println("\nActivities:")
	for _, a := range activities {
		fmt.Printf("  %-40s %8d events  %s .. %s\n",
			a.Activity, a.Occurrences,
			a.First.Format("2006-01-02"), a.Last.Format("2006-01-02"))
	}

	fmt.Println("\nObject types:")
	for _, ot := range objectTypes {
		fmt.Printf("  %-40s %8d objects  %8d events\n", ot.ObjectType, ot.Objects, ot.Events)
	}

	return exportStarSchema(ctx, store)
}

// exportStarSchema flattens the staged log when --star-dir is set.
func exportStarSchema(ctx context.Context, store *ocel.Store) error {
	if starDir == "" {
		return nil
	}

	exporter, err := export.NewStarSchemaExporter(store.DB(), starDir, compressionFlag)
	if err != nil {
		return fmt.Errorf("failed to create star schema exporter: %w", err)
	}

	result, err := exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export star schema: %w", err)
	}

	fmt.Println("\nStar schema:")
	for _, f := range result.Files() {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

// constraintsDoc is the canonical on-disk form written by discover and read
// by check. A bare list of constraints is also accepted.
type constraintsDoc struct {
	Constraints []*declare.Constraint `json:"constraints" yaml:"constraints"`
}

func loadConstraintSet(path string) (*declare.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints file: %w", err)
	}

	constraints, err := decodeConstraints(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(constraints) == 0 {
		return nil, fmt.Errorf("no constraints in %s", path)
	}

	set := declare.NewSet()
	set.Append(constraints...)
	return set, nil
}

func decodeConstraints(data []byte, ext string) ([]*declare.Constraint, error) {
	var doc constraintsDoc
	var list []*declare.Constraint

	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &doc); err == nil && len(doc.Constraints) > 0 {
			return doc.Constraints, nil
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Constraints) > 0 {
		return doc.Constraints, nil
	}
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func loadCreateInput(path string) (plugin.CreateInput, error) {
	var input plugin.CreateInput

	data, err := os.ReadFile(path)
	if err != nil {
		return input, fmt.Errorf("failed to read definitions file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &input)
	} else {
		err = yaml.Unmarshal(data, &input)
	}
	if err != nil {
		return input, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(input.Constraints) == 0 {
		return input, fmt.Errorf("no constraints in %s", path)
	}

	return input, nil
}
