package boundary

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Attribute fields in the London borough boundary shapefile. GSS codes
// are optional because older extracts ship without them.
const (
	fieldName     = "name"
	fieldGSSCode  = "gss_code"
	fieldHectares = "hectares"
	fieldInner    = "ons_inner"
)

// LoadShapefile reads borough polygons and attributes from the London
// borough boundary shapefile. Hectares convert to km², the ONS_INNER
// flag ("T"/"F") to the Inner bool, and geometries are reprojected to
// WGS84.
func LoadShapefile(path string) ([]Borough, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	for _, required := range []string{fieldName, fieldHectares, fieldInner} {
		if _, ok := fieldIdx[required]; !ok {
			return nil, eris.Errorf("boundary: shapefile %s missing field %s", path, strings.ToUpper(required))
		}
	}

	attr := func(field string) string {
		idx, ok := fieldIdx[field]
		if !ok {
			return ""
		}
		val := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(val)
	}

	var boroughs []Borough
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		name := attr(fieldName)
		if name == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		geometry := polygonToMultiPolygon(poly)
		if geometry == nil {
			skipped++
			continue
		}

		hectares, err := strconv.ParseFloat(attr(fieldHectares), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: parse hectares for %s", name)
		}

		boroughs = append(boroughs, Borough{
			Name:     name,
			GSSCode:  attr(fieldGSSCode),
			AreaKm2:  hectares / 100,
			Inner:    strings.EqualFold(attr(fieldInner), "T"),
			Geometry: geometry,
		})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(boroughs) == 0 {
		return nil, eris.Errorf("boundary: shapefile %s holds no borough records", path)
	}

	zap.L().Info("boundary: loaded shapefile",
		zap.String("path", path),
		zap.Int("boroughs", len(boroughs)),
	)
	return boroughs, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a WGS84
// geom.MultiPolygon. National Grid coordinates are reprojected;
// coordinates that already look geographic pass through unchanged.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	geographic := looksGeographic(p.Points)
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			x, y := p.Points[j].X, p.Points[j].Y
			if !geographic {
				x, y = OSGB36ToWGS84(x, y)
			}
			flat = append(flat, x, y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// looksGeographic reports whether every point fits in the longitude
// and latitude value ranges. Grid eastings and northings never do.
func looksGeographic(points []shp.Point) bool {
	for _, pt := range points {
		if math.Abs(pt.X) > 180 || math.Abs(pt.Y) > 90 {
			return false
		}
	}
	return true
}
