package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

const (
	// SheetName is the single sheet the template is written to.
	SheetName = "Quarterly Data"

	// headerRows is the number of header rows (quarter labels + subheaders)
	// preceding the first classification row.
	headerRows = 2

	subheaderVaginal  = "Vaginal Delivery"
	subheaderCSection = "C/Section"
)

// QuarterlyTemplate builds the blank quarterly workbook for the fiscal year
// containing today: one row per Robson classification plus "No Record" and a
// computed "Total" row, two columns per quarter plus two "Final" columns
// whose SUMPRODUCT formulas sum vaginal (even) and operative (odd) columns
// by column parity.
func QuarterlyTemplate(today time.Time) (*excelize.File, error) {
	quarters := Quarters(today)

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	dataCols := len(quarters) * 2           // B..I
	finalFirstCol := dataCols + 2           // first "Final" column (J)
	totalCols := dataCols + 3               // label + data + two final columns
	firstDataRow := headerRows + 1          // row 3
	noRecordRow := firstDataRow + len(models.Classifications)
	totalRow := noRecordRow + 1

	// Corner header spans both header rows.
	if err = f.SetCellValue(SheetName, "A1", "Group Robson"); err != nil {
		return nil, err
	}

	if err = f.MergeCell(SheetName, "A1", "A2"); err != nil {
		return nil, err
	}

	if err = f.SetCellStyle(SheetName, "A1", "A2", bold); err != nil {
		return nil, err
	}

	// Quarter headers, each spanning its vaginal and operative columns.
	for i, quarter := range quarters {
		if err = writeSpannedHeader(f, 2+i*2, quarter, bold); err != nil {
			return nil, err
		}
	}

	if err = writeSpannedHeader(f, finalFirstCol, "Final", bold); err != nil {
		return nil, err
	}

	// Subheader row alternates delivery modes across every column pair.
	for col := 2; col <= totalCols; col++ {
		name := subheaderVaginal
		if col%2 != 0 {
			name = subheaderCSection
		}

		ref, err := excelize.CoordinatesToCellName(col, 2)
		if err != nil {
			return nil, err
		}

		if err = f.SetCellValue(SheetName, ref, name); err != nil {
			return nil, err
		}

		if err = f.SetCellStyle(SheetName, ref, ref, centered); err != nil {
			return nil, err
		}
	}

	// Data rows: one per classification, then "No Record". Data cells are
	// zeroed for manual entry; the Final pair holds the parity formulas.
	labels := make([]string, 0, len(models.Classifications)+1)
	for _, code := range models.Classifications {
		labels = append(labels, "Group "+code)
	}

	labels = append(labels, "No Record")

	for i, label := range labels {
		row := firstDataRow + i
		if err = writeDataRow(f, row, label, dataCols, finalFirstCol); err != nil {
			return nil, err
		}
	}

	// Grand total row sums every data row per column.
	if err = f.SetCellValue(SheetName, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return nil, err
	}

	for col := 2; col <= totalCols; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return nil, err
		}

		formula := fmt.Sprintf("SUM(%s%d:%s%d)", name, firstDataRow, name, totalRow-1)
		if err = f.SetCellFormula(SheetName, fmt.Sprintf("%s%d", name, totalRow), formula); err != nil {
			return nil, err
		}
	}

	totalEnd, err := excelize.CoordinatesToCellName(totalCols, totalRow)
	if err != nil {
		return nil, err
	}

	if err = f.SetCellStyle(SheetName, fmt.Sprintf("A%d", totalRow), totalEnd, bold); err != nil {
		return nil, err
	}

	if err = autoSizeColumns(f, totalCols, totalRow); err != nil {
		return nil, err
	}

	return f, nil
}

// writeSpannedHeader writes a first-row header merged across a column pair.
func writeSpannedHeader(f *excelize.File, startCol int, value string, style int) error {
	start, err := excelize.CoordinatesToCellName(startCol, 1)
	if err != nil {
		return err
	}

	end, err := excelize.CoordinatesToCellName(startCol+1, 1)
	if err != nil {
		return err
	}

	if err = f.SetCellValue(SheetName, start, value); err != nil {
		return err
	}

	if err = f.MergeCell(SheetName, start, end); err != nil {
		return err
	}

	return f.SetCellStyle(SheetName, start, end, style)
}

// writeDataRow writes one classification row: label, zeroed data cells and
// the two SUMPRODUCT parity formulas in the Final columns.
func writeDataRow(f *excelize.File, row int, label string, dataCols, finalFirstCol int) error {
	if err := f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), label); err != nil {
		return err
	}

	for col := 2; col < 2+dataCols; col++ {
		ref, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}

		if err = f.SetCellValue(SheetName, ref, 0); err != nil {
			return err
		}
	}

	lastData, err := excelize.ColumnNumberToName(dataCols + 1)
	if err != nil {
		return err
	}

	span := fmt.Sprintf("B%d:%s%d", row, lastData, row)

	vaginalRef, err := excelize.CoordinatesToCellName(finalFirstCol, row)
	if err != nil {
		return err
	}

	formula := fmt.Sprintf("SUMPRODUCT(%s, --ISEVEN(COLUMN(%s)))", span, span)
	if err = f.SetCellFormula(SheetName, vaginalRef, formula); err != nil {
		return err
	}

	csectionRef, err := excelize.CoordinatesToCellName(finalFirstCol+1, row)
	if err != nil {
		return err
	}

	formula = fmt.Sprintf("SUMPRODUCT(%s, --ISODD(COLUMN(%s)))", span, span)

	return f.SetCellFormula(SheetName, csectionRef, formula)
}

// autoSizeColumns widens each column to its longest cell value plus padding.
func autoSizeColumns(f *excelize.File, cols, rows int) error {
	for col := 1; col <= cols; col++ {
		width := 0

		for row := 1; row <= rows; row++ {
			ref, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return err
			}

			value, err := f.GetCellValue(SheetName, ref)
			if err != nil {
				return err
			}

			if len(value) > width {
				width = len(value)
			}
		}

		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}

		if err = f.SetColWidth(SheetName, name, name, float64(width+2)); err != nil {
			return err
		}
	}

	return nil
}
