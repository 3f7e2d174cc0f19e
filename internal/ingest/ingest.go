// Package ingest parses quarterly tabulated uploads (CSV or spreadsheet)
// into individual entry records. The document layout matches the quarterly
// template: a header row of quarter labels at stride two, then one row per
// Robson classification with a vaginal and an operative count per quarter.
package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/policy"
)

const (
	quarterPrefix = "Quarter"
	groupPrefix   = "Group"

	// quarterStride is the column distance between quarter labels: each
	// quarter owns a vaginal and an operative column.
	quarterStride = 2

	// dataRowOffset is the index of the first classification row relative to
	// the header row; the subheader row sits in between.
	dataRowOffset = 2

	// dateLayout parses dates like "1 July 2024" once ordinal suffixes are
	// stripped.
	dateLayout = "2 January 2006"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrInvalidFormat is returned when the document's quarter or group
	// labels do not match the expected layout. Nothing is persisted.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNoGroups is returned when the uploader has no group memberships to
	// tag the new entries with.
	ErrNoGroups = errors.New("you do not have permission to add entries to any group")

	// ordinalSuffix strips "st"/"nd"/"rd"/"th" from day numbers.
	ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)
)

// record is one parsed entry waiting to be persisted.
type record struct {
	classification string
	csection       bool
	date           time.Time
}

// UploadCSV parses a comma-separated document and persists the parsed
// entries for the uploading user. It returns the number of entries created.
func UploadCSV(db *gorm.DB, userID uint64, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, ErrInvalidFormat
	}

	return Upload(db, userID, rows)
}

// UploadXLSX parses a spreadsheet document and persists the parsed entries
// for the uploading user. Only the first sheet is read.
func UploadXLSX(db *gorm.DB, userID uint64, r io.Reader) (int, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return 0, ErrInvalidFormat
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	if err != nil {
		return 0, ErrInvalidFormat
	}

	return Upload(db, userID, rows)
}

// Upload parses the normalized row/column document and creates one entry
// per counted delivery, dated at the owning quarter's start and tagged with
// the uploader's current group memberships. The whole upload is scanned
// before anything is written and persisted inside a single transaction, so
// a malformed document or a mid-scan fault never leaves a partial upload
// behind.
func Upload(db *gorm.DB, userID uint64, rows [][]string) (int, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	records, err := parse(rows, time.Now())
	if err != nil {
		return 0, err
	}

	groupIDs, err := policy.MemberGroupIDs(db, userID)
	if err != nil {
		return 0, err
	}

	if len(groupIDs) == 0 {
		return 0, ErrNoGroups
	}

	var groups []models.Group
	if err = db.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return 0, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			ent := models.Entry{
				Classification: rec.classification,
				CSection:       rec.csection,
				Date:           rec.date,
				UserID:         &userID,
				Groups:         groups,
			}
			if err := tx.Create(&ent).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// parse walks the document, validating structure before emitting anything.
// rows may include leading preamble; scanning starts at the first row whose
// first cell begins with "Group" (the "Group Robson" header row).
func parse(rows [][]string, now time.Time) ([]record, error) {
	rows = trimPreamble(rows)
	if len(rows) == 0 {
		return nil, ErrInvalidFormat
	}

	if !strings.HasPrefix(cell(rows, 0, 1), quarterPrefix) {
		return nil, ErrInvalidFormat
	}

	var records []record

	for col := 1; strings.HasPrefix(cell(rows, 0, col), quarterPrefix); col += quarterStride {
		quarterStart, err := parseQuarterStart(cell(rows, 0, col), now)
		if err != nil {
			return nil, ErrInvalidFormat
		}

		row := dataRowOffset
		if !strings.HasPrefix(cell(rows, row, 0), groupPrefix) {
			return nil, ErrInvalidFormat
		}

		for strings.HasPrefix(cell(rows, row, 0), groupPrefix) {
			code := classificationCode(cell(rows, row, 0))
			if !models.ValidClassification(code) {
				return nil, ErrInvalidFormat
			}

			for n := count(cell(rows, row, col)); n > 0; n-- {
				records = append(records, record{classification: code, date: quarterStart})
			}

			for n := count(cell(rows, row, col+1)); n > 0; n-- {
				records = append(records, record{classification: code, csection: true, date: quarterStart})
			}

			row++
		}
	}

	return records, nil
}

// trimPreamble drops rows preceding the "Group Robson" header row.
func trimPreamble(rows [][]string) [][]string {
	for i, row := range rows {
		if len(row) > 0 && strings.HasPrefix(strings.ToLower(strings.TrimSpace(row[0])), "group") {
			return rows[i:]
		}
	}

	return nil
}

// parseQuarterStart extracts the quarter's first day from a label like
// "Quarter 1: 1st July 2024 - 30th September 2024". Future-dated quarters
// are silently capped to now.
func parseQuarterStart(label string, now time.Time) (time.Time, error) {
	_, dates, ok := strings.Cut(label, ":")
	if !ok {
		return time.Time{}, ErrInvalidFormat
	}

	startText, _, _ := strings.Cut(dates, "-")
	startText = ordinalSuffix.ReplaceAllString(strings.TrimSpace(startText), "$1")

	start, err := time.Parse(dateLayout, startText)
	if err != nil {
		return time.Time{}, err
	}

	if start.After(now) {
		start = now
	}

	return start, nil
}

// classificationCode extracts "5.1" from a row label like "Group 5.1".
func classificationCode(label string) string {
	fields := strings.Fields(label)
	if len(fields) < 2 {
		return ""
	}

	return fields[1]
}

// count parses a cell as a non-negative count; blank or malformed cells
// count as zero.
func count(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}

	return n
}

func cell(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}

	return strings.TrimSpace(rows[r][c])
}
