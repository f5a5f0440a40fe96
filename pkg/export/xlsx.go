package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/declareflow/declareflow/pkg/declare"
	"github.com/declareflow/declareflow/pkg/render"
)

const xlsxSheet = "Constraints"

// WriteXLSX writes a constraint set as an Excel workbook. The column set
// follows the same presence rule as the table renderer: the conformance
// column appears only when some constraint carries a value.
func WriteXLSX(path string, set *declare.Set) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	columns := render.Columns(set)
	withConformance := set.HasConformance()

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := writeRow(f, 1, header); err != nil {
		return err
	}

	for i, c := range set.Constraints {
		row := []interface{}{
			string(c.Type),
			c.Source,
			c.Target,
			string(c.Quantifier),
			strings.Join(c.ObjectTypes, ", "),
			optionalInt(c.Min),
			optionalInt(c.Max),
		}
		if withConformance {
			row = append(row, optionalFloat(c.Conformance))
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(xlsxSheet, cell, &values)
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
