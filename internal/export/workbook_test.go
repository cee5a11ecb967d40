package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookWritesSheets(t *testing.T) {
	f, err := Workbook([]SheetSpec{
		{Title: "Ideas", Header: []string{"Title", "Score"}, Rows: [][]any{{"Solar roof", 7.5}, {"Kiosk", nil}}},
		{Title: "Summary", Header: []string{"Metric", "Value"}, Rows: [][]any{{"Total", 2}}},
	})
	require.NoError(t, err)

	data, err := Bytes(f)
	require.NoError(t, err)

	read, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer read.Close()

	assert.Equal(t, []string{"Ideas", "Summary"}, read.GetSheetList())

	rows, err := read.GetRows("Ideas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Title", "Score"}, rows[0])
	assert.Equal(t, []string{"Solar roof", "7.5"}, rows[1])

	total, err := read.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

func TestColName(t *testing.T) {
	assert.Equal(t, "A", colName(1))
	assert.Equal(t, "Z", colName(26))
	assert.Equal(t, "AA", colName(27))
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "ideas_2026-01-31.xlsx", Filename("ideas", at))
}
