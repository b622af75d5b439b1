package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/ingest"
)

// Load assembles the full borough reference from the boundary
// shapefile and the population table. Every borough in the shapefile
// must have a population row; extra population rows (the Greater
// London total, say) are ignored with a warning.
func Load(ctx context.Context, shapefilePath, populationPath string) (*Reference, error) {
	shpPath, cleanup, err := ResolveShapefile(shapefilePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	boroughs, err := LoadShapefile(shpPath)
	if err != nil {
		return nil, err
	}

	pops, err := LoadPopulation(ctx, populationPath)
	if err != nil {
		return nil, err
	}

	matched := make(map[string]bool, len(boroughs))
	for i := range boroughs {
		key := NormalizeKey(boroughs[i].Name)
		pop, ok := pops[key]
		if !ok {
			return nil, eris.Errorf("boundary: population table has no row for %s", boroughs[i].Name)
		}
		boroughs[i].Population = pop
		matched[key] = true
	}
	for key := range pops {
		if !matched[key] {
			zap.L().Warn("boundary: population row matches no borough", zap.String("name", key))
		}
	}

	return NewReference(boroughs)
}

// ResolveShapefile locates the .shp payload for path, which may name
// the shapefile itself, a directory holding one, or a ZIP archive as
// published by the London Datastore. The cleanup func removes any
// temporary extraction and is never nil.
func ResolveShapefile(path string) (string, func(), error) {
	noop := func() {}

	info, err := os.Stat(path)
	if err != nil {
		return "", noop, eris.Wrapf(err, "boundary: stat %s", path)
	}
	if info.IsDir() {
		shpPath, err := ingest.FindByExt(path, ".shp")
		if err != nil {
			return "", noop, eris.Wrapf(err, "boundary: locate shapefile under %s", path)
		}
		return shpPath, noop, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return path, noop, nil
	case ".zip":
		dir, err := os.MkdirTemp("", "lfb-boundary-")
		if err != nil {
			return "", noop, eris.Wrap(err, "boundary: create extract dir")
		}
		cleanup := func() { _ = os.RemoveAll(dir) }
		if _, err := ingest.ExtractZIP(path, dir); err != nil {
			cleanup()
			return "", noop, eris.Wrapf(err, "boundary: extract %s", path)
		}
		shpPath, err := ingest.FindByExt(dir, ".shp")
		if err != nil {
			cleanup()
			return "", noop, eris.Wrapf(err, "boundary: locate shapefile in %s", path)
		}
		return shpPath, cleanup, nil
	default:
		return "", noop, eris.Errorf("boundary: unsupported boundary file %s", path)
	}
}
