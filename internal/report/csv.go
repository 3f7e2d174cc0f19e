package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

// csvHeader is the fixed column order of the export.
var csvHeader = []string{"id", "username", "classification", "csection", "date", "groups"}

// WriteCSV streams the given entries to w as CSV. The username column is
// empty for entries whose submitter account was deleted; the groups column
// holds the entry's group names joined with commas.
func WriteCSV(w io.Writer, entries []models.Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range entries {
		username := ""
		if e.User != nil {
			username = e.User.Username
		}

		names := make([]string, 0, len(e.Groups))
		for _, g := range e.Groups {
			names = append(names, g.Name)
		}

		record := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			username,
			e.Classification,
			strconv.FormatBool(e.CSection),
			e.Date.Format("2006-01-02"),
			strings.Join(names, ","),
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
