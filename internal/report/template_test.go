package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuarterlyTemplate(t *testing.T) {
	today := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)

	f, err := QuarterlyTemplate(today)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetName, f.GetSheetName(0))

	corner, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Group Robson", corner)

	// Quarter headers sit on every other column starting at B.
	q1, err := f.GetCellValue(SheetName, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Quarter 1: 1st July 2023 - 30th September 2023", q1)

	q4, err := f.GetCellValue(SheetName, "H1")
	require.NoError(t, err)
	assert.Equal(t, "Quarter 4: 1st April 2024 - 30th June 2024", q4)

	final, err := f.GetCellValue(SheetName, "J1")
	require.NoError(t, err)
	assert.Equal(t, "Final", final)

	// Subheaders alternate delivery modes.
	vaginal, err := f.GetCellValue(SheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Vaginal Delivery", vaginal)

	csection, err := f.GetCellValue(SheetName, "C2")
	require.NoError(t, err)
	assert.Equal(t, "C/Section", csection)

	// Eleven classification rows, then No Record and Total.
	first, err := f.GetCellValue(SheetName, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Group 1", first)

	split, err := f.GetCellValue(SheetName, "A7")
	require.NoError(t, err)
	assert.Equal(t, "Group 5.1", split)

	last, err := f.GetCellValue(SheetName, "A13")
	require.NoError(t, err)
	assert.Equal(t, "Group 10", last)

	noRecord, err := f.GetCellValue(SheetName, "A14")
	require.NoError(t, err)
	assert.Equal(t, "No Record", noRecord)

	total, err := f.GetCellValue(SheetName, "A15")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)

	// Final columns carry the parity formulas, total row the sums.
	formula, err := f.GetCellFormula(SheetName, "J3")
	require.NoError(t, err)
	assert.Contains(t, formula, "SUMPRODUCT")
	assert.Contains(t, formula, "ISEVEN")

	formula, err = f.GetCellFormula(SheetName, "K3")
	require.NoError(t, err)
	assert.Contains(t, formula, "ISODD")

	formula, err = f.GetCellFormula(SheetName, "B15")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B3:B14)", formula)

	// Data cells are zeroed for manual entry.
	value, err := f.GetCellValue(SheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "0", value)

	// Round trip: the template parses back through the ingestion layout
	// check (header row, quarter labels, group rows).
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Group Robson", rows[0][0])
}
