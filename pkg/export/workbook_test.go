package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewWorkbookWritesSheets(t *testing.T) {
	wb, err := NewWorkbook([]Sheet{
		{
			Title:  "Workers",
			Header: []string{"Name", "Email", "Points"},
			Rows: [][]any{
				{"Ana", "ana@example.com", 120},
				{"Ben", "ben@example.com", 80},
			},
		},
		{
			Title:  "Progress",
			Header: []string{"Worker", "Course", "Percentage"},
			Rows:   [][]any{{"Ana", "Go basics", 50}},
		},
	})
	require.NoError(t, err)
	defer wb.Close()

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Workers", "Progress"}, f.GetSheetList())

	rows, err := f.GetRows("Workers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Email", "Points"}, rows[0])
	assert.Equal(t, []string{"Ben", "ben@example.com", "80"}, rows[2])

	val, err := f.GetCellValue("Progress", "C2")
	require.NoError(t, err)
	assert.Equal(t, "50", val)
}

func TestNewWorkbookRequiresSheet(t *testing.T) {
	_, err := NewWorkbook(nil)
	assert.Error(t, err)
}
