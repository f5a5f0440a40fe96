// DuckDB-based storage for OCEL 2.0 logs.
package ocel

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Store provides persistent storage for OCEL 2.0 logs using DuckDB.
// Uses relational tables matching the OCEL 2.0 specification.
type Store struct {
	db   *sql.DB
	path string
}

// StoreConfig configures the OCEL store.
type StoreConfig struct {
	// Path is the database file path (":memory:" for in-memory)
	Path string

	// ReadOnly opens the database in read-only mode
	ReadOnly bool
}

// NewStore creates a new OCEL store.
func NewStore(path string) (*Store, error) {
	return NewStoreWithConfig(StoreConfig{Path: path})
}

// NewStoreWithConfig creates a store with custom configuration.
func NewStoreWithConfig(cfg StoreConfig) (*Store, error) {
	dsn := cfg.Path
	if cfg.ReadOnly {
		dsn += "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	store := &Store{db: db, path: cfg.Path}

	if !cfg.ReadOnly {
		if err := store.initSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return store, nil
}

// initSchema creates the OCEL 2.0 tables.
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS event (
			event_id    VARCHAR PRIMARY KEY,
			event_type  VARCHAR NOT NULL,
			timestamp   TIMESTAMP NOT NULL,
			seq         BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS object (
			object_id   VARCHAR PRIMARY KEY,
			object_type VARCHAR NOT NULL
		);

		CREATE TABLE IF NOT EXISTS event_object (
			event_id    VARCHAR NOT NULL,
			object_id   VARCHAR NOT NULL,
			qualifier   VARCHAR DEFAULT '',
			seq         BIGINT NOT NULL,
			PRIMARY KEY (event_id, object_id, qualifier)
		);

		CREATE TABLE IF NOT EXISTS object_object (
			source_id   VARCHAR NOT NULL,
			target_id   VARCHAR NOT NULL,
			qualifier   VARCHAR DEFAULT '',
			seq         BIGINT NOT NULL,
			PRIMARY KEY (source_id, target_id, qualifier)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveLog writes a complete log into the store inside one transaction.
// Inconsistent logs are rejected before anything is written.
func (s *Store) SaveLog(ctx context.Context, log *Log) error {
	if problems := log.Validate(); len(problems) > 0 {
		return fmt.Errorf("refusing to persist inconsistent log: %s", strings.Join(problems, "; "))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	eventStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO event (event_id, event_type, timestamp, seq) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, event := range log.Events {
		if _, err := eventStmt.ExecContext(ctx, event.ID, event.Activity, event.Timestamp, event.Seq); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
		}
	}

	objectStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO object (object_id, object_type) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer objectStmt.Close()

	for _, obj := range log.Objects {
		if _, err := objectStmt.ExecContext(ctx, obj.ID, obj.Type); err != nil {
			return fmt.Errorf("failed to insert object %s: %w", obj.ID, err)
		}
	}

	e2oStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO event_object (event_id, object_id, qualifier, seq) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer e2oStmt.Close()

	for i, rel := range log.E2ORelations {
		if _, err := e2oStmt.ExecContext(ctx, rel.EventID, rel.ObjectID, rel.Qualifier, i); err != nil {
			return fmt.Errorf("failed to insert E2O relation: %w", err)
		}
	}

	o2oStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO object_object (source_id, target_id, qualifier, seq) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer o2oStmt.Close()

	for i, rel := range log.O2ORelations {
		if _, err := o2oStmt.ExecContext(ctx, rel.SourceID, rel.TargetID, rel.Qualifier, i); err != nil {
			return fmt.Errorf("failed to insert O2O relation: %w", err)
		}
	}

	return tx.Commit()
}

// LoadLog reads a complete log from the store.
// Events and relations are loaded in their original ingestion sequence
// so that a View over the reloaded log evaluates identically.
func (s *Store) LoadLog(ctx context.Context) (*Log, error) {
	log := NewLog()

	rows, err := s.db.QueryContext(ctx,
		"SELECT event_id, event_type, timestamp, seq FROM event ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	for rows.Next() {
		var id, activity string
		var ts time.Time
		var seq int
		if err := rows.Scan(&id, &activity, &ts, &seq); err != nil {
			rows.Close()
			return nil, err
		}
		log.AddEvent(&Event{ID: id, Activity: activity, Timestamp: ts})
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT object_id, object_type FROM object")
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	for rows.Next() {
		var id, objType string
		if err := rows.Scan(&id, &objType); err != nil {
			rows.Close()
			return nil, err
		}
		log.AddObject(&Object{ID: id, Type: objType})
	}
	rows.Close()

	// Relation order drives Each-mode instance order and first-seen
	// object-type order downstream, so it must survive a round trip.
	rows, err = s.db.QueryContext(ctx, "SELECT event_id, object_id, qualifier FROM event_object ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query E2O relations: %w", err)
	}
	for rows.Next() {
		var eventID, objectID, qualifier string
		if err := rows.Scan(&eventID, &objectID, &qualifier); err != nil {
			rows.Close()
			return nil, err
		}
		_ = log.AddE2O(eventID, objectID, qualifier)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT source_id, target_id, qualifier FROM object_object ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query O2O relations: %w", err)
	}
	for rows.Next() {
		var sourceID, targetID, qualifier string
		if err := rows.Scan(&sourceID, &targetID, &qualifier); err != nil {
			rows.Close()
			return nil, err
		}
		_ = log.AddO2O(sourceID, targetID, qualifier)
	}
	rows.Close()

	return log, nil
}

// ActivitySummary describes one activity in the stored log.
type ActivitySummary struct {
	Activity    string
	Occurrences int64
	ObjectTypes int64
	First       time.Time
	Last        time.Time
}

// Activities returns per-activity statistics using SQL aggregation.
func (s *Store) Activities(ctx context.Context) ([]ActivitySummary, error) {
	query := `
		SELECT
			e.event_type,
			COUNT(DISTINCT e.event_id)  AS occurrences,
			COUNT(DISTINCT o.object_type) AS object_types,
			MIN(e.timestamp) AS first_seen,
			MAX(e.timestamp) AS last_seen
		FROM event e
		LEFT JOIN event_object eo ON e.event_id = eo.event_id
		LEFT JOIN object o ON eo.object_id = o.object_id
		GROUP BY e.event_type
		ORDER BY e.event_type
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity summary: %w", err)
	}
	defer rows.Close()

	var result []ActivitySummary
	for rows.Next() {
		var a ActivitySummary
		if err := rows.Scan(&a.Activity, &a.Occurrences, &a.ObjectTypes, &a.First, &a.Last); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ObjectTypeSummary describes one object type in the stored log.
type ObjectTypeSummary struct {
	ObjectType string
	Objects    int64
	Events     int64
}

// ObjectTypes returns per-object-type statistics using SQL aggregation.
func (s *Store) ObjectTypes(ctx context.Context) ([]ObjectTypeSummary, error) {
	query := `
		SELECT
			o.object_type,
			COUNT(DISTINCT o.object_id) AS objects,
			COUNT(DISTINCT eo.event_id) AS events
		FROM object o
		LEFT JOIN event_object eo ON o.object_id = eo.object_id
		GROUP BY o.object_type
		ORDER BY o.object_type
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query object type summary: %w", err)
	}
	defer rows.Close()

	var result []ObjectTypeSummary
	for rows.Next() {
		var o ObjectTypeSummary
		if err := rows.Scan(&o.ObjectType, &o.Objects, &o.Events); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// DB exposes the underlying connection for SQL-level consumers such as
// the star schema exporter.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
