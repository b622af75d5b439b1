// Package boundary loads the Greater London borough reference: names,
// GSS codes, areas, the Inner/Outer classification, resident
// populations, and polygon outlines for map rendering.
package boundary

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// BoroughCount is the number of Greater London boroughs, the City of
// London included.
const BoroughCount = 33

// Borough describes one borough as read from the boundary shapefile
// and the population table.
type Borough struct {
	Name       string
	GSSCode    string
	AreaKm2    float64
	Population int64
	Inner      bool
	Geometry   *geom.MultiPolygon
}

// NormalizeKey reduces a borough name to the form used for joins:
// surrounding whitespace stripped, letters upper-cased. Incident
// extracts and boundary files disagree on casing and padding, nothing
// else.
func NormalizeKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Reference is an immutable borough lookup table keyed by normalized
// name. Build one with NewReference or Load.
type Reference struct {
	byKey map[string]*Borough
	names []string
}

// NewReference builds a Reference from boroughs. The slice is copied,
// so later mutation by the caller does not leak in. Empty or duplicate
// normalized names are an error.
func NewReference(boroughs []Borough) (*Reference, error) {
	if len(boroughs) == 0 {
		return nil, eris.New("boundary: no boroughs")
	}

	rows := make([]Borough, len(boroughs))
	copy(rows, boroughs)

	byKey := make(map[string]*Borough, len(rows))
	names := make([]string, 0, len(rows))
	for i := range rows {
		key := NormalizeKey(rows[i].Name)
		if key == "" {
			return nil, eris.New("boundary: borough with empty name")
		}
		if _, dup := byKey[key]; dup {
			return nil, eris.Errorf("boundary: duplicate borough %s", rows[i].Name)
		}
		byKey[key] = &rows[i]
		names = append(names, rows[i].Name)
	}
	sort.Strings(names)

	return &Reference{byKey: byKey, names: names}, nil
}

// Lookup returns the borough for name, normalizing first.
func (r *Reference) Lookup(name string) (*Borough, bool) {
	b, ok := r.byKey[NormalizeKey(name)]
	return b, ok
}

// Names returns the canonical borough names in sorted order.
func (r *Reference) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every borough in sorted-name order.
func (r *Reference) All() []*Borough {
	out := make([]*Borough, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byKey[NormalizeKey(name)])
	}
	return out
}

// Count returns the number of boroughs in the reference.
func (r *Reference) Count() int {
	return len(r.names)
}
