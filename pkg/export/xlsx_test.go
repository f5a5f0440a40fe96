package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() err = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("GetRows() err = %v", err)
	}
	return rows
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constraints.xlsx")
	if err := WriteXLSX(path, exportSet(t, true)); err != nil {
		t.Fatalf("WriteXLSX() err = %v", err)
	}

	rows := readSheet(t, path)
	if len(rows) != 3 {
		t.Fatalf("sheet has %d rows, want header + 2", len(rows))
	}

	wantHeader := []string{"type", "source", "target", "quantifier", "object_types", "min", "max", "conformance"}
	if len(rows[0]) != len(wantHeader) {
		t.Fatalf("header = %v, want %v", rows[0], wantHeader)
	}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	bounded := rows[1]
	if bounded[0] != "EF" || bounded[1] != "Place Order" || bounded[2] != "Ship Order" {
		t.Errorf("first data row = %v", bounded)
	}
	if bounded[4] != "Order" || bounded[5] != "1" || bounded[6] != "2" {
		t.Errorf("first data row types/bounds = %v", bounded)
	}
	if bounded[7] != "0.8" {
		t.Errorf("conformance cell = %q, want 0.8", bounded[7])
	}
}

func TestWriteXLSXOmitsConformanceColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constraints.xlsx")
	if err := WriteXLSX(path, exportSet(t, false)); err != nil {
		t.Fatalf("WriteXLSX() err = %v", err)
	}

	rows := readSheet(t, path)
	if len(rows[0]) != 7 {
		t.Fatalf("header = %v, want 7 columns without conformance", rows[0])
	}
	for _, col := range rows[0] {
		if col == "conformance" {
			t.Errorf("conformance column present without any score: %v", rows[0])
		}
	}
}
