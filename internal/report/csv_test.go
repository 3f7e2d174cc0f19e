package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

func TestWriteCSV(t *testing.T) {
	userID := uint64(7)

	entries := []models.Entry{
		{
			ID:             1,
			Classification: "5.1",
			CSection:       true,
			Date:           time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			UserID:         &userID,
			User:           &models.User{ID: userID, Username: "midwife"},
			Groups: []models.Group{
				{ID: 1, Name: "first ward"},
				{ID: 2, Name: "second ward"},
			},
		},
		{
			// Entry whose submitter account was deleted.
			ID:             2,
			Classification: "1",
			Date:           time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "username", "classification", "csection", "date", "groups"}, records[0])
	assert.Equal(t, []string{"1", "midwife", "5.1", "true", "2024-07-01", "first ward,second ward"}, records[1])
	assert.Equal(t, []string{"2", "", "1", "false", "2024-10-02", ""}, records[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
