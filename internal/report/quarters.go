// Package report produces the quarterly template workbook and the CSV
// export of visible entries. The template is a formatted skeleton with
// formulas for manual entry, never a query over stored entries.
package report

import (
	"fmt"
	"time"
)

// fiscalStartMonth is the month the reporting year begins in.
const fiscalStartMonth = time.July

// FiscalYearStart returns the July 1 anchoring the four most recently
// completed rolling quarters: last July 1 when today has passed this
// calendar year's July 1, the July 1 of the year before otherwise.
func FiscalYearStart(today time.Time) time.Time {
	anchor := time.Date(today.Year()-1, fiscalStartMonth, 1, 0, 0, 0, 0, today.Location())
	if today.Before(time.Date(today.Year(), fiscalStartMonth, 1, 0, 0, 0, 0, today.Location())) {
		anchor = anchor.AddDate(-1, 0, 0)
	}

	return anchor
}

// Quarters returns the four quarter labels for the fiscal year anchored by
// FiscalYearStart, in the exact form the ingestion pipeline parses back.
func Quarters(today time.Time) []string {
	year := FiscalYearStart(today).Year()

	return []string{
		fmt.Sprintf("Quarter 1: 1st July %d - 30th September %d", year, year),
		fmt.Sprintf("Quarter 2: 1st October %d - 31st December %d", year, year),
		fmt.Sprintf("Quarter 3: 1st January %d - 31st March %d", year+1, year+1),
		fmt.Sprintf("Quarter 4: 1st April %d - 30th June %d", year+1, year+1),
	}
}
