package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// StarSchemaExporter flattens a staged OCEL 2.0 log into a star schema
// for BI tools. Output: Fact_Events, Dim_Activities, Dim_Objects and
// Dim_Time, plus Bridge_Event_Objects for the many-to-many relation
// between events and objects.
type StarSchemaExporter struct {
	db          *sql.DB
	outputDir   string
	compression string
}

// NewStarSchemaExporter creates an exporter over a staged log database.
// The connection must hold the event, object and event_object tables
// produced by the OCEL store.
func NewStarSchemaExporter(db *sql.DB, outputDir, compression string) (*StarSchemaExporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if compression == "" {
		compression = "zstd"
	}

	return &StarSchemaExporter{
		db:          db,
		outputDir:   outputDir,
		compression: compression,
	}, nil
}

// Export generates the star schema Parquet files.
func (e *StarSchemaExporter) Export(ctx context.Context) (*StarSchemaResult, error) {
	result := &StarSchemaResult{OutputDir: e.outputDir}

	if err := e.generateDimActivities(ctx); err != nil {
		return nil, err
	}
	result.DimActivities = filepath.Join(e.outputDir, "Dim_Activities.parquet")

	if err := e.generateDimObjects(ctx); err != nil {
		return nil, err
	}
	result.DimObjects = filepath.Join(e.outputDir, "Dim_Objects.parquet")

	if err := e.generateDimTime(ctx); err != nil {
		return nil, err
	}
	result.DimTime = filepath.Join(e.outputDir, "Dim_Time.parquet")

	if err := e.generateFactEvents(ctx); err != nil {
		return nil, err
	}
	result.FactEvents = filepath.Join(e.outputDir, "Fact_Events.parquet")

	if err := e.generateBridge(ctx); err != nil {
		return nil, err
	}
	result.BridgeEventObjects = filepath.Join(e.outputDir, "Bridge_Event_Objects.parquet")

	return result, nil
}

// generateDimActivities creates the activity dimension table.
func (e *StarSchemaExporter) generateDimActivities(ctx context.Context) error {
	query := fmt.Sprintf(`
		COPY (
			SELECT
				ROW_NUMBER() OVER (ORDER BY event_type) AS activity_key,
				event_type AS activity_name,
				COUNT(*) AS occurrences,
				MIN(timestamp) AS first_seen,
				MAX(timestamp) AS last_seen
			FROM event
			GROUP BY event_type
			ORDER BY event_type
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, filepath.Join(e.outputDir, "Dim_Activities.parquet"), e.compression)

	_, err := e.db.ExecContext(ctx, query)
	return err
}

// generateDimObjects creates the object dimension table.
func (e *StarSchemaExporter) generateDimObjects(ctx context.Context) error {
	query := fmt.Sprintf(`
		COPY (
			SELECT
				ROW_NUMBER() OVER (ORDER BY o.object_id) AS object_key,
				o.object_id,
				o.object_type,
				COUNT(eo.event_id) AS event_count
			FROM object o
			LEFT JOIN event_object eo ON o.object_id = eo.object_id
			GROUP BY o.object_id, o.object_type
			ORDER BY o.object_id
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, filepath.Join(e.outputDir, "Dim_Objects.parquet"), e.compression)

	_, err := e.db.ExecContext(ctx, query)
	return err
}

// generateDimTime creates a date dimension over the event timestamps.
func (e *StarSchemaExporter) generateDimTime(ctx context.Context) error {
	query := fmt.Sprintf(`
		COPY (
			WITH dates AS (
				SELECT DISTINCT DATE_TRUNC('day', timestamp) AS date
				FROM event
			)
			SELECT
				ROW_NUMBER() OVER (ORDER BY date) AS time_key,
				date AS full_date,
				EXTRACT(YEAR FROM date) AS year,
				EXTRACT(QUARTER FROM date) AS quarter,
				EXTRACT(MONTH FROM date) AS month,
				EXTRACT(DAY FROM date) AS day,
				EXTRACT(ISODOW FROM date) AS day_of_week,
				EXTRACT(WEEK FROM date) AS week_of_year,
				CASE WHEN EXTRACT(ISODOW FROM date) IN (6, 7) THEN 1 ELSE 0 END AS is_weekend,
				MONTHNAME(date) AS month_name
			FROM dates
			ORDER BY date
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, filepath.Join(e.outputDir, "Dim_Time.parquet"), e.compression)

	_, err := e.db.ExecContext(ctx, query)
	return err
}

// generateFactEvents creates the fact table with foreign keys.
func (e *StarSchemaExporter) generateFactEvents(ctx context.Context) error {
	if err := e.createLookups(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		COPY (
			SELECT
				ev.seq AS event_key,
				ev.event_id,
				a.activity_key,
				t.time_key,
				ev.timestamp,
				COUNT(eo.object_id) AS object_count
			FROM event ev
			LEFT JOIN star_activity_lookup a ON ev.event_type = a.event_type
			LEFT JOIN star_time_lookup t ON DATE_TRUNC('day', ev.timestamp) = t.date
			LEFT JOIN event_object eo ON ev.event_id = eo.event_id
			GROUP BY ev.seq, ev.event_id, a.activity_key, t.time_key, ev.timestamp
			ORDER BY ev.seq
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, filepath.Join(e.outputDir, "Fact_Events.parquet"), e.compression)

	_, err := e.db.ExecContext(ctx, query)
	return err
}

// generateBridge creates the event/object bridge table.
func (e *StarSchemaExporter) generateBridge(ctx context.Context) error {
	query := fmt.Sprintf(`
		COPY (
			SELECT
				ev.seq AS event_key,
				ol.object_key,
				eo.qualifier
			FROM event_object eo
			JOIN event ev ON eo.event_id = ev.event_id
			JOIN star_object_lookup ol ON eo.object_id = ol.object_id
			ORDER BY ev.seq, ol.object_key
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, filepath.Join(e.outputDir, "Bridge_Event_Objects.parquet"), e.compression)

	_, err := e.db.ExecContext(ctx, query)
	return err
}

// createLookups builds the surrogate-key lookup tables. Key order must
// match the ROW_NUMBER ordering used in the dimension queries.
func (e *StarSchemaExporter) createLookups(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE OR REPLACE TEMP TABLE star_activity_lookup AS
		SELECT event_type, ROW_NUMBER() OVER (ORDER BY event_type) AS activity_key
		FROM (SELECT DISTINCT event_type FROM event);

		CREATE OR REPLACE TEMP TABLE star_object_lookup AS
		SELECT object_id, ROW_NUMBER() OVER (ORDER BY object_id) AS object_key
		FROM object;

		CREATE OR REPLACE TEMP TABLE star_time_lookup AS
		SELECT date, ROW_NUMBER() OVER (ORDER BY date) AS time_key
		FROM (SELECT DISTINCT DATE_TRUNC('day', timestamp) AS date FROM event);
	`)
	if err != nil {
		return fmt.Errorf("failed to create lookups: %w", err)
	}
	return nil
}

// StarSchemaResult contains the paths to generated files.
type StarSchemaResult struct {
	OutputDir          string `json:"output_dir"`
	FactEvents         string `json:"fact_events"`
	DimActivities      string `json:"dim_activities"`
	DimObjects         string `json:"dim_objects"`
	DimTime            string `json:"dim_time"`
	BridgeEventObjects string `json:"bridge_event_objects"`
}

// Files returns all generated file paths.
func (r *StarSchemaResult) Files() []string {
	return []string{
		r.FactEvents,
		r.DimActivities,
		r.DimObjects,
		r.DimTime,
		r.BridgeEventObjects,
	}
}
