package export

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/declareflow/declareflow/pkg/declare"
)

func exportSet(t *testing.T, scored bool) *declare.Set {
	t.Helper()

	min, max := 1, 2
	bounded, err := declare.NewConstraint(declare.KindEF, "Place Order", "Ship Order",
		declare.QuantEach, []string{"Order"}, &min, &max)
	if err != nil {
		t.Fatalf("NewConstraint() err = %v", err)
	}
	if scored {
		score := 0.8
		bounded.Conformance = &score
	}

	open, err := declare.NewConstraint(declare.KindAS, "Ship Order", "Place Order",
		declare.QuantAny, []string{"Order", "Item"}, nil, nil)
	if err != nil {
		t.Fatalf("NewConstraint() err = %v", err)
	}

	set := declare.NewSet()
	set.Append(bounded, open)
	return set
}

func TestWriteParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constraints.parquet")
	if err := WriteParquetFile(path, exportSet(t, true), DefaultParquetConfig()); err != nil {
		t.Fatalf("WriteParquetFile() err = %v", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT type, source, target, quantifier, len(object_types), "min", "max", conformance
		FROM read_parquet('%s') ORDER BY source
	`, path)
	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("read_parquet: %v", err)
	}
	defer rows.Close()

	type row struct {
		kind, source, target, quant string
		objectTypes                 int64
		min, max                    sql.NullInt64
		conformance                 sql.NullFloat64
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.kind, &r.source, &r.target, &r.quant,
			&r.objectTypes, &r.min, &r.max, &r.conformance); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read back %d rows, want 2", len(got))
	}

	bounded := got[0]
	if bounded.kind != "EF" || bounded.source != "Place Order" || bounded.target != "Ship Order" {
		t.Errorf("bounded row = %+v", bounded)
	}
	if bounded.quant != "Each" || bounded.objectTypes != 1 {
		t.Errorf("bounded row quantifier/types = %+v", bounded)
	}
	if !bounded.min.Valid || bounded.min.Int64 != 1 || !bounded.max.Valid || bounded.max.Int64 != 2 {
		t.Errorf("bounded row bounds = %+v", bounded)
	}
	if !bounded.conformance.Valid || bounded.conformance.Float64 != 0.8 {
		t.Errorf("bounded row conformance = %+v", bounded.conformance)
	}

	open := got[1]
	if open.kind != "AS" || open.objectTypes != 2 {
		t.Errorf("open row = %+v", open)
	}
	if open.min.Valid || open.max.Valid || open.conformance.Valid {
		t.Errorf("open row should carry nulls: %+v", open)
	}
}

func TestWriteParquetCompressionCodecs(t *testing.T) {
	for _, codec := range []string{"snappy", "gzip", "zstd"} {
		path := filepath.Join(t.TempDir(), codec+".parquet")
		if err := WriteParquetFile(path, exportSet(t, false), ParquetConfig{Compression: codec}); err != nil {
			t.Errorf("WriteParquetFile(%s) err = %v", codec, err)
			continue
		}
		if got := parquetCount(t, path); got != 2 {
			t.Errorf("%s: read back %d rows, want 2", codec, got)
		}
	}
}
