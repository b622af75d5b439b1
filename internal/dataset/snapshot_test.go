package dataset

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRawSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incidents.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

const snapshotHeader = "incident_number,call_timestamp,incident_group,borough,first_pump_seconds,turnout_seconds,travel_seconds,second_pump_seconds,delay_code\n"

func TestReadSnapshot_Basic(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-001,2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,410,\n"+
		"I-002,2024-03-15 15:00:00,False Alarm,BRENT,295,75,220,,Traffic calming measures\n")

	ds, err := ReadSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)

	first := ds.Rows[0]
	assert.Equal(t, "I-001", first.ID)
	assert.Equal(t, "Fire", first.Type)
	assert.Equal(t, "CAMDEN", first.Borough)
	assert.Equal(t, 2024, first.Time.Year())
	assert.Equal(t, 14, first.Time.Hour())
	assert.Equal(t, Dur(310), first.Response)
	assert.Equal(t, Dur(80), first.Turnout)
	assert.Equal(t, Dur(230), first.Travel)
	assert.Equal(t, Dur(410), first.SecondPump)
	assert.Empty(t, first.DelayCode)

	second := ds.Rows[1]
	assert.False(t, second.SecondPump.Valid)
	assert.Equal(t, "Traffic calming measures", second.DelayCode)
	assert.False(t, ds.Enriched)
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	_, err := ReadSnapshot(context.Background(), "/nonexistent/incidents.csv.gz")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
}

func TestReadSnapshot_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.csv.gz")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := ReadSnapshot(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
}

func TestReadSnapshot_MissingColumn(t *testing.T) {
	path := writeRawSnapshot(t, "incident_number,call_timestamp\nI-1,2024-01-01 00:00:00\n")

	_, err := ReadSnapshot(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "borough")
}

func TestReadSnapshot_EmptyFile(t *testing.T) {
	path := writeRawSnapshot(t, "")

	_, err := ReadSnapshot(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "empty")
}

func TestReadSnapshot_HeaderOnly(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader)

	ds, err := ReadSnapshot(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, ds.Rows)
}

func TestReadSnapshot_DegradedRowsSkipped(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		",2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,,\n"+ // no id
		"I-2,not-a-time,Fire,CAMDEN,310,80,230,,\n"+ // bad timestamp
		"I-3,2024-03-15 14:30:00,Fire,CAMDEN,oops,80,230,,\n") // bad number

	ds, err := ReadSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "I-3", ds.Rows[0].ID)
	// Unparseable number degrades to missing, the row survives.
	assert.False(t, ds.Rows[0].Response.Valid)
	assert.Equal(t, Dur(80), ds.Rows[0].Turnout)
}

func TestReadSnapshot_NegativeKeptForCleaning(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,CAMDEN,-5,80,230,,\n")

	ds, err := ReadSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, Dur(-5), ds.Rows[0].Response)
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	rows := []Incident{
		{
			ID:         "I-100",
			Time:       time.Date(2023, 7, 4, 18, 45, 0, 0, time.UTC),
			Type:       "Special Service",
			Borough:    "HACKNEY",
			Response:   Dur(512),
			Turnout:    Dur(90),
			Travel:     Dur(422),
			SecondPump: Dur(600),
			DelayCode:  "Not held up",
		},
		{
			ID:      "I-101",
			Time:    time.Date(2023, 7, 4, 19, 0, 0, 0, time.UTC),
			Type:    "Fire",
			Borough: "CAMDEN",
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv.gz")
	require.NoError(t, WriteSnapshot(path, rows))

	ds, err := ReadSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, rows[0].ID, ds.Rows[0].ID)
	assert.True(t, rows[0].Time.Equal(ds.Rows[0].Time))
	assert.Equal(t, rows[0].Response, ds.Rows[0].Response)
	assert.Equal(t, rows[0].DelayCode, ds.Rows[0].DelayCode)
	assert.False(t, ds.Rows[1].Response.Valid)
	assert.False(t, ds.Rows[1].Turnout.Valid)
}

func TestWriteSnapshot_NoPartialFileOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "out.csv.gz")

	err := WriteSnapshot(path, nil)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
