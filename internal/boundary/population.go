package boundary

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lfb-cli/internal/ingest"
)

// Population table columns.
const (
	popColBorough    = "borough"
	popColPopulation = "population"
)

// LoadPopulation reads the borough population table, a CSV with a
// borough column and a population column. Thousands separators in the
// counts are tolerated. Keys in the returned map are normalized
// borough names.
func LoadPopulation(ctx context.Context, path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open population table %s", path)
	}
	defer f.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rowCh, errCh := ingest.StreamCSV(ctx, f, ingest.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	boroughIdx, popIdx := -1, -1
	out := make(map[string]int64)

	for row := range rowCh {
		if boroughIdx < 0 {
			header := <-headerCh
			for i, col := range header {
				switch strings.ToLower(strings.TrimSpace(col)) {
				case popColBorough:
					boroughIdx = i
				case popColPopulation:
					popIdx = i
				}
			}
			if boroughIdx < 0 || popIdx < 0 {
				return nil, eris.Errorf("boundary: population table %s missing borough or population column", path)
			}
		}

		if boroughIdx >= len(row) || popIdx >= len(row) {
			continue
		}
		key := NormalizeKey(row[boroughIdx])
		if key == "" {
			continue
		}
		if _, dup := out[key]; dup {
			return nil, eris.Errorf("boundary: duplicate population row for %s", row[boroughIdx])
		}

		raw := strings.ReplaceAll(strings.TrimSpace(row[popIdx]), ",", "")
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: parse population for %s", row[boroughIdx])
		}
		out[key] = count
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "boundary: read population table %s", path)
	}

	if len(out) == 0 {
		return nil, eris.Errorf("boundary: population table %s holds no rows", path)
	}
	return out, nil
}
