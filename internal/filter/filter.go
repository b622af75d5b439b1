// Package filter carves read-only row subsets out of the enriched
// dataset along the year, month, and incident-type dimensions.
package filter

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/schema"
)

// Selection names the rows to keep. An empty slice on any dimension
// means no restriction there, not "match nothing"; a fully empty
// Selection is the identity filter.
type Selection struct {
	Years  []int
	Months []int
	Types  []string
}

// Empty reports whether the selection restricts nothing.
func (sel Selection) Empty() bool {
	return len(sel.Years) == 0 && len(sel.Months) == 0 && len(sel.Types) == 0
}

// Subset is a read-only view over rows of one enriched dataset. It
// holds row indices, never copies, and preserves dataset order.
type Subset struct {
	ds  *dataset.Dataset
	idx []int
}

// Apply filters ds down to the rows matching sel. Matching is a
// conjunction across dimensions. Fails with the schema sentinel when
// ds is missing or not enriched.
func Apply(ds *dataset.Dataset, sel Selection) (*Subset, error) {
	if ds == nil {
		return nil, eris.Wrap(schema.ErrSchema, "filter: nil dataset")
	}
	if !ds.Enriched {
		return nil, eris.Wrap(schema.ErrSchema, "filter: dataset not enriched")
	}

	m := newMatcher(sel)
	idx := make([]int, 0, len(ds.Rows))
	for i := range ds.Rows {
		if m.match(&ds.Rows[i]) {
			idx = append(idx, i)
		}
	}
	return &Subset{ds: ds, idx: idx}, nil
}

// Filter refines the subset with a further selection over the same
// backing dataset. Refining with the same selection is a no-op.
func (s *Subset) Filter(sel Selection) (*Subset, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}

	m := newMatcher(sel)
	idx := make([]int, 0, len(s.idx))
	for _, i := range s.idx {
		if m.match(&s.ds.Rows[i]) {
			idx = append(idx, i)
		}
	}
	return &Subset{ds: s.ds, idx: idx}, nil
}

// Check reports whether the subset is backed by an enriched dataset.
// Aggregations call it on entry so a malformed subset surfaces as the
// schema sentinel instead of a panic.
func (s *Subset) Check() error {
	if s == nil || s.ds == nil {
		return eris.Wrap(schema.ErrSchema, "filter: subset has no backing dataset")
	}
	if !s.ds.Enriched {
		return eris.Wrap(schema.ErrSchema, "filter: dataset not enriched")
	}
	return nil
}

// Len returns the number of rows in the subset.
func (s *Subset) Len() int {
	if s == nil {
		return 0
	}
	return len(s.idx)
}

// At returns the i-th subset row. The pointer aliases the backing
// dataset; callers must not mutate through it.
func (s *Subset) At(i int) *dataset.Incident {
	return &s.ds.Rows[s.idx[i]]
}

// Base returns the backing enriched dataset.
func (s *Subset) Base() *dataset.Dataset {
	if s == nil {
		return nil
	}
	return s.ds
}

type matcher struct {
	years  map[int]struct{}
	months map[int]struct{}
	types  map[string]struct{}
}

func newMatcher(sel Selection) matcher {
	m := matcher{}
	if len(sel.Years) > 0 {
		m.years = make(map[int]struct{}, len(sel.Years))
		for _, y := range sel.Years {
			m.years[y] = struct{}{}
		}
	}
	if len(sel.Months) > 0 {
		m.months = make(map[int]struct{}, len(sel.Months))
		for _, mo := range sel.Months {
			m.months[mo] = struct{}{}
		}
	}
	if len(sel.Types) > 0 {
		m.types = make(map[string]struct{}, len(sel.Types))
		for _, t := range sel.Types {
			m.types[normalizeType(t)] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(inc *dataset.Incident) bool {
	if m.years != nil {
		if _, ok := m.years[inc.Year]; !ok {
			return false
		}
	}
	if m.months != nil {
		if _, ok := m.months[inc.Month]; !ok {
			return false
		}
	}
	if m.types != nil {
		if _, ok := m.types[normalizeType(inc.Type)]; !ok {
			return false
		}
	}
	return true
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
