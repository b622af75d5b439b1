package boundary

import (
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection renders the reference as a GeoJSON feature
// collection for map overlays. Each feature carries name, gss_code,
// inner, area_km2, and population properties. Boroughs without
// geometry are omitted.
func (r *Reference) FeatureCollection() *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, b := range r.All() {
		if b.Geometry == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       b.GSSCode,
			Geometry: b.Geometry,
			Properties: map[string]any{
				"name":       b.Name,
				"gss_code":   b.GSSCode,
				"inner":      b.Inner,
				"area_km2":   b.AreaKm2,
				"population": b.Population,
			},
		})
	}
	return fc
}
