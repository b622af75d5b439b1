// Package build turns raw brigade exports into the analysis snapshot.
// Each incident and mobilisation source is streamed into the sqlite
// scratch warehouse, mobilisations are reduced to the first-arriving
// pump per incident, and the join is written out as the gzip CSV
// snapshot the loader consumes.
package build

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/ingest"
	"github.com/sells-group/lfb-cli/internal/schema"
	"github.com/sells-group/lfb-cli/internal/store"
)

const insertBatch = 1000

// Options configure a snapshot build.
type Options struct {
	SourcesDir   string // directory holding fetched raw files
	ScratchPath  string // sqlite warehouse location
	SnapshotPath string // gzip CSV output
	TempDir      string // zip extraction space, empty means the system default
	Concurrency  int    // parallel source ingest, default 2
}

func (o *Options) validate() error {
	if o.SourcesDir == "" {
		return eris.New("build: sources dir not set")
	}
	if o.ScratchPath == "" {
		return eris.New("build: scratch path not set")
	}
	if o.SnapshotPath == "" {
		return eris.New("build: snapshot path not set")
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
	return nil
}

// Result summarizes a completed build.
type Result struct {
	RunID         string
	Incidents     int
	Mobilisations int
	SnapshotRows  int
	SnapshotPath  string
	SkippedRows   int
}

type builder struct {
	wh      *store.Warehouse
	opts    Options
	log     *zap.Logger
	skipped atomic.Int64
}

// Run executes a full snapshot build from the manifest's incident and
// mobilisation sources. The scratch warehouse is reset first, so a
// build always reflects exactly the current source files.
func Run(ctx context.Context, m *ingest.Manifest, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.TempDir != "" {
		if err := os.MkdirAll(opts.TempDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "build: temp dir")
		}
	}

	wh, err := store.Open(opts.ScratchPath)
	if err != nil {
		return nil, err
	}
	defer wh.Close() //nolint:errcheck

	if err := wh.Migrate(ctx); err != nil {
		return nil, err
	}
	if err := wh.Reset(ctx); err != nil {
		return nil, err
	}

	runID, err := wh.BeginRun(ctx)
	if err != nil {
		return nil, err
	}

	b := &builder{
		wh:   wh,
		opts: opts,
		log:  zap.L().With(zap.String("component", "build")),
	}

	if err := b.stageAll(ctx, m); err != nil {
		return nil, err
	}

	incidents, mobilisations, err := wh.Counts(ctx)
	if err != nil {
		return nil, err
	}
	if incidents == 0 {
		return nil, eris.New("build: no incident rows staged")
	}
	if mobilisations == 0 {
		return nil, eris.New("build: no mobilisation rows staged")
	}

	rows, err := b.joinedRows(ctx)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteSnapshot(opts.SnapshotPath, rows); err != nil {
		return nil, err
	}
	if err := wh.FinishRun(ctx, runID, opts.SnapshotPath); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:         runID,
		Incidents:     incidents,
		Mobilisations: mobilisations,
		SnapshotRows:  len(rows),
		SnapshotPath:  opts.SnapshotPath,
		SkippedRows:   int(b.skipped.Load()),
	}
	b.log.Info("snapshot built",
		zap.String("run_id", res.RunID),
		zap.Int("incidents", res.Incidents),
		zap.Int("mobilisations", res.Mobilisations),
		zap.Int("snapshot_rows", res.SnapshotRows),
		zap.Int("skipped_rows", res.SkippedRows),
	)
	return res, nil
}

// stageAll ingests every incident and mobilisation source
// concurrently. WAL mode lets readers proceed while one writer holds
// the lock, but the insert batches are kept small so no writer holds
// it for long.
func (b *builder) stageAll(ctx context.Context, m *ingest.Manifest) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for _, src := range m.ByKind(ingest.KindIncident) {
		g.Go(func() error { return b.stageIncidents(ctx, src) })
	}
	for _, src := range m.ByKind(ingest.KindMobilisation) {
		g.Go(func() error { return b.stageMobilisations(ctx, src) })
	}
	return g.Wait()
}

func (b *builder) stageIncidents(ctx context.Context, src ingest.Source) error {
	rows, errs, headerCh, cleanup, err := b.openRows(ctx, src)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		idx     map[string]int
		batch   []store.IncidentRow
		staged  int
		skipped int
	)
	for row := range rows {
		if idx == nil {
			idx = schema.Index(<-headerCh)
			if err := requireColumns(src, idx, colIncidentNumber, colDateOfCall); err != nil {
				return err
			}
		}
		inc, ok := incidentFromRow(row, idx)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, inc)
		if len(batch) >= insertBatch {
			if err := b.wh.InsertIncidents(ctx, batch); err != nil {
				return err
			}
			staged += len(batch)
			batch = batch[:0]
		}
	}
	if err := <-errs; err != nil {
		return eris.Wrapf(err, "build: source %s", src.Name)
	}
	if err := b.wh.InsertIncidents(ctx, batch); err != nil {
		return err
	}
	staged += len(batch)

	b.skipped.Add(int64(skipped))
	b.log.Info("incident source staged",
		zap.String("source", src.Name),
		zap.Int("rows", staged),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (b *builder) stageMobilisations(ctx context.Context, src ingest.Source) error {
	rows, errs, headerCh, cleanup, err := b.openRows(ctx, src)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		idx     map[string]int
		batch   []store.MobilisationRow
		staged  int
		skipped int
	)
	for row := range rows {
		if idx == nil {
			idx = schema.Index(<-headerCh)
			if err := requireColumns(src, idx, colIncidentNumber, colPumpOrder); err != nil {
				return err
			}
		}
		mob, ok := mobilisationFromRow(row, idx)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, mob)
		if len(batch) >= insertBatch {
			if err := b.wh.InsertMobilisations(ctx, batch); err != nil {
				return err
			}
			staged += len(batch)
			batch = batch[:0]
		}
	}
	if err := <-errs; err != nil {
		return eris.Wrapf(err, "build: source %s", src.Name)
	}
	if err := b.wh.InsertMobilisations(ctx, batch); err != nil {
		return err
	}
	staged += len(batch)

	b.skipped.Add(int64(skipped))
	b.log.Info("mobilisation source staged",
		zap.String("source", src.Name),
		zap.Int("rows", staged),
		zap.Int("skipped", skipped),
	)
	return nil
}

// openRows starts a row stream for one source file, unwrapping zip
// archives down to the csv or xlsx inside. The caller must drain the
// row channel, then the error channel, then call cleanup.
func (b *builder) openRows(ctx context.Context, src ingest.Source) (<-chan []string, <-chan error, <-chan []string, func(), error) {
	path := filepath.Join(b.opts.SourcesDir, src.FileName())
	format := src.Format
	cleanup := func() {}

	if format == ingest.FormatZIP {
		dir, err := os.MkdirTemp(b.opts.TempDir, "lfb-build-*")
		if err != nil {
			return nil, nil, nil, nil, eris.Wrap(err, "build: temp dir")
		}
		cleanup = func() { os.RemoveAll(dir) } //nolint:errcheck
		if _, err := ingest.ExtractZIP(path, dir); err != nil {
			cleanup()
			return nil, nil, nil, nil, eris.Wrapf(err, "build: source %s", src.Name)
		}
		if inner, err := ingest.FindByExt(dir, ".csv"); err == nil {
			path, format = inner, ingest.FormatCSV
		} else if inner, err := ingest.FindByExt(dir, ".xlsx"); err == nil {
			path, format = inner, ingest.FormatXLSX
		} else {
			cleanup()
			return nil, nil, nil, nil, eris.Errorf("build: source %s: archive holds no csv or xlsx", src.Name)
		}
	}

	headerCh := make(chan []string, 1)
	if format == ingest.FormatXLSX {
		skip := src.SkipRows
		if skip == 0 {
			skip = 1 // the header row itself
		}
		rows, errs := ingest.StreamXLSX(ctx, path, ingest.XLSXOptions{
			SheetName:   src.Sheet,
			SheetPrefix: src.SheetPrefix,
			SkipRows:    skip,
			HeaderCh:    headerCh,
		})
		return rows, errs, headerCh, cleanup, nil
	}

	f, err := ingest.OpenMaybeGzip(path)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, eris.Wrapf(err, "build: source %s", src.Name)
	}
	inner := cleanup
	cleanup = func() {
		f.Close() //nolint:errcheck
		inner()
	}
	rows, errs := ingest.StreamCSV(ctx, f, ingest.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		Encoding:  src.Encoding,
		TrimSpace: true,
	})
	return rows, errs, headerCh, cleanup, nil
}

func requireColumns(src ingest.Source, idx map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := idx[name]; !ok {
			return eris.Errorf("build: source %s: missing column %q", src.Name, name)
		}
	}
	return nil
}

// joinedRows runs the first-pump reduction and maps the result onto
// snapshot rows.
func (b *builder) joinedRows(ctx context.Context) ([]dataset.Incident, error) {
	var rows []dataset.Incident
	err := b.wh.ScanFirstPumps(ctx, func(fp store.FirstPump) error {
		rows = append(rows, dataset.Incident{
			ID:         fp.IncidentNumber,
			Time:       fp.Time.UTC(),
			Type:       fp.Type,
			Borough:    fp.Borough,
			Turnout:    durFromNull(fp.Turnout),
			Travel:     durFromNull(fp.Travel),
			Response:   durFromNull(fp.Response),
			SecondPump: durFromNull(fp.SecondResponse),
			DelayCode:  fp.DelayCode,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func durFromNull(v sql.NullFloat64) dataset.Duration {
	if !v.Valid {
		return dataset.Duration{}
	}
	return dataset.Dur(v.Float64)
}
