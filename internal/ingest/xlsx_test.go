package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestStreamXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"IncidentNumber", "TurnoutTimeSeconds"},
			{"I-1", "65"},
			{"I-2", "82"},
		},
	})

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{
		SkipRows: 1,
		HeaderCh: headerCh,
	})

	rows := collectRows(t, rowCh, errCh)
	assert.Equal(t, []string{"IncidentNumber", "TurnoutTimeSeconds"}, <-headerCh)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"I-1", "65"}, rows[0])
}

func TestStreamXLSX_SheetPrefix(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Notes":          {{"ignored"}},
		"202101 onwards": {{"IncidentNumber"}, {"I-9"}},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{
		SheetPrefix: "202101",
		SkipRows:    1,
	})

	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, "I-9", rows[0][0])
}

func TestStreamXLSX_SheetPrefixNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetPrefix: "202201"})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheet with prefix")
}

func TestStreamXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Data":  {{"x"}, {"1"}},
		"Other": {{"y"}},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Data", SkipRows: 1})
	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0][0])
}

func TestStreamXLSX_EmptyRowsDropped(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"col"},
			{"value"},
			{"", ""},
			{"  "},
		},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SkipRows: 1})
	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, "value", rows[0][0])
}

func TestStreamXLSX_MissingFile(t *testing.T) {
	rowCh, errCh := StreamXLSX(context.Background(), "/nonexistent/file.xlsx", XLSXOptions{})
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}
