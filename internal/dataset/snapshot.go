package dataset

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/ingest"
	"github.com/sells-group/lfb-cli/internal/schema"
)

// ReadSnapshot loads the gzip CSV snapshot into memory, coercing every
// numeric and time column to its typed form. Downstream stages never
// re-parse raw strings. Fails with ErrDataLoad when the file is absent,
// unreadable, or missing a required column.
func ReadSnapshot(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "dataset: open snapshot %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "dataset: gzip snapshot %s: %v", path, err)
	}
	defer gz.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := ingest.StreamCSV(ctx, gz, ingest.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		idx       map[string]int
		rows      []Incident
		badTime   int
		badNumber int
		noID      int
	)

	for row := range rowCh {
		if idx == nil {
			header := <-headerCh
			if err := schema.ValidateHeader(header); err != nil {
				return nil, eris.Wrapf(ErrDataLoad, "dataset: snapshot header: %v", err)
			}
			idx = schema.Index(header)
		}

		id := col(row, idx, schema.ColIncidentNumber)
		if id == "" {
			noID++
			continue
		}

		ts, err := time.Parse(schema.TimeLayout, col(row, idx, schema.ColCallTimestamp))
		if err != nil {
			badTime++
			continue
		}

		inc := Incident{
			ID:        id,
			Time:      ts,
			Type:      col(row, idx, schema.ColIncidentGroup),
			Borough:   col(row, idx, schema.ColBorough),
			DelayCode: col(row, idx, schema.ColDelayCode),
		}
		inc.Response, badNumber = parseSeconds(col(row, idx, schema.ColFirstPumpSeconds), badNumber)
		inc.Turnout, badNumber = parseSeconds(col(row, idx, schema.ColTurnoutSeconds), badNumber)
		inc.Travel, badNumber = parseSeconds(col(row, idx, schema.ColTravelSeconds), badNumber)
		inc.SecondPump, badNumber = parseSeconds(col(row, idx, schema.ColSecondPumpSeconds), badNumber)

		rows = append(rows, inc)
	}

	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(ErrDataLoad, "dataset: read snapshot %s: %v", path, err)
	}

	// A snapshot with no header at all never populated idx.
	if idx == nil {
		select {
		case header := <-headerCh:
			if err := schema.ValidateHeader(header); err != nil {
				return nil, eris.Wrapf(ErrDataLoad, "dataset: snapshot header: %v", err)
			}
		default:
			return nil, eris.Wrapf(ErrDataLoad, "dataset: snapshot %s is empty", path)
		}
	}

	if noID > 0 || badTime > 0 || badNumber > 0 {
		zap.L().Warn("snapshot rows skipped or degraded",
			zap.String("path", path),
			zap.Int("missing_id", noID),
			zap.Int("bad_timestamp", badTime),
			zap.Int("bad_number", badNumber),
		)
	}

	zap.L().Info("snapshot loaded",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)

	return &Dataset{
		Rows:     rows,
		Path:     path,
		LoadedAt: time.Now(),
	}, nil
}

// WriteSnapshot writes rows as a gzip CSV snapshot. The file appears
// atomically so a concurrent provider never observes a half-written
// snapshot under a fresh mtime.
func WriteSnapshot(path string, rows []Incident) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "dataset: create snapshot %s", tmp)
	}

	gz := gzip.NewWriter(f)
	w := csv.NewWriter(gz)

	writeErr := w.Write(schema.Columns())
	for i := range rows {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(encodeRow(&rows[i]))
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if err := gz.Close(); writeErr == nil {
		writeErr = err
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(writeErr, "dataset: write snapshot %s", path)
	}

	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "dataset: finalize snapshot %s", path)
	}
	return nil
}

func encodeRow(inc *Incident) []string {
	return []string{
		inc.ID,
		inc.Time.Format(schema.TimeLayout),
		inc.Type,
		inc.Borough,
		encodeSeconds(inc.Response),
		encodeSeconds(inc.Turnout),
		encodeSeconds(inc.Travel),
		encodeSeconds(inc.SecondPump),
		inc.DelayCode,
	}
}

func encodeSeconds(d Duration) string {
	if !d.Valid {
		return ""
	}
	return strconv.FormatFloat(d.Seconds, 'f', -1, 64)
}

// parseSeconds coerces an optional seconds column. Empty means not
// recorded; unparseable values count as degraded and become missing.
// Negative values are kept as-is for the cleaning stage to rule on.
func parseSeconds(s string, bad int) (Duration, int) {
	if s == "" {
		return Duration{}, bad
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Duration{}, bad + 1
	}
	return Dur(v), bad
}

func col(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
