package stats

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/filter"
)

// BoroughStat is the per-borough aggregate row. Inferential statistics
// operate on these 33 observations, never on raw incidents; mixing
// levels of aggregation would invalidate them.
type BoroughStat struct {
	Name           string  `json:"name"`
	Inner          bool    `json:"inner"`
	AreaKm2        float64 `json:"area_km2"`
	Population     int64   `json:"population"`
	Scope          Scope   `json:"scope"`
	MeanResponse   Value   `json:"mean_response_seconds"`
	MedianResponse Value   `json:"median_response_seconds"`
	MedianTurnout  Value   `json:"median_turnout_seconds"`
	MedianTravel   Value   `json:"median_travel_seconds"`
	Within6Rate    Value   `json:"within_6min_rate"`
	Within10Rate   Value   `json:"within_10min_rate"`
	NotHeldUpShare Value   `json:"not_held_up_share"`
}

// ByBorough aggregates the subset per borough, sorted by name. Borough
// attributes (area, population, ring) ride along from the enriched
// rows.
func ByBorough(s *filter.Subset) ([]BoroughStat, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}

	type acc struct {
		stat      BoroughStat
		responses []float64
		turnouts  []float64
		travels   []float64
		w6Def     int
		w6Met     int
		w10Def    int
		w10Met    int
		notHeld   int
	}
	accs := make(map[string]*acc)

	for i := range s.Len() {
		inc := s.At(i)
		a := accs[inc.Borough]
		if a == nil {
			a = &acc{stat: BoroughStat{
				Name:       inc.Borough,
				Inner:      inc.Inner,
				AreaKm2:    inc.AreaKm2,
				Population: inc.Population,
			}}
			accs[inc.Borough] = a
		}
		a.stat.Scope.Total++
		if inc.Response.Valid {
			a.responses = append(a.responses, inc.Response.Seconds)
		}
		if inc.Turnout.Valid {
			a.turnouts = append(a.turnouts, inc.Turnout.Seconds)
		}
		if inc.Travel.Valid {
			a.travels = append(a.travels, inc.Travel.Seconds)
		}
		if inc.Within6.Valid {
			a.w6Def++
			if inc.Within6.Value {
				a.w6Met++
			}
		}
		if inc.Within10.Valid {
			a.w10Def++
			if inc.Within10.Value {
				a.w10Met++
			}
		}
		if inc.DelayCode == enrich.NotHeldUp {
			a.notHeld++
		}
	}

	out := make([]BoroughStat, 0, len(accs))
	for _, a := range accs {
		st := a.stat
		st.Scope.Defined = len(a.responses)
		if len(a.responses) > 0 {
			sort.Float64s(a.responses)
			st.MeanResponse = Defined(mean(a.responses))
			st.MedianResponse = Defined(percentile(a.responses, 0.5))
		}
		if len(a.turnouts) > 0 {
			sort.Float64s(a.turnouts)
			st.MedianTurnout = Defined(percentile(a.turnouts, 0.5))
		}
		if len(a.travels) > 0 {
			sort.Float64s(a.travels)
			st.MedianTravel = Defined(percentile(a.travels, 0.5))
		}
		if a.w6Def > 0 {
			st.Within6Rate = Defined(float64(a.w6Met) / float64(a.w6Def))
		}
		if a.w10Def > 0 {
			st.Within10Rate = Defined(float64(a.w10Met) / float64(a.w10Def))
		}
		if st.Scope.Total > 0 {
			st.NotHeldUpShare = Defined(float64(a.notHeld) / float64(st.Scope.Total))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RingComparison contrasts Inner and Outer London. The headline figure
// on each side is the mean of the borough medians, which weights every
// borough equally regardless of incident volume.
type RingComparison struct {
	InnerBoroughs      int   `json:"inner_boroughs"`
	OuterBoroughs      int   `json:"outer_boroughs"`
	InnerMeanOfMedians Value `json:"inner_mean_of_borough_medians"`
	OuterMeanOfMedians Value `json:"outer_mean_of_borough_medians"`
	GapSeconds         Value `json:"gap_seconds"`
}

// CompareRings derives the Inner/Outer contrast from borough
// aggregates. Boroughs with an undefined median contribute nothing.
func CompareRings(boroughs []BoroughStat) RingComparison {
	var cmp RingComparison
	var innerVals, outerVals []float64

	for _, b := range boroughs {
		if b.Inner {
			cmp.InnerBoroughs++
		} else {
			cmp.OuterBoroughs++
		}
		med, ok := b.MedianResponse.Float()
		if !ok {
			continue
		}
		if b.Inner {
			innerVals = append(innerVals, med)
		} else {
			outerVals = append(outerVals, med)
		}
	}

	if len(innerVals) > 0 {
		cmp.InnerMeanOfMedians = Defined(mean(innerVals))
	}
	if len(outerVals) > 0 {
		cmp.OuterMeanOfMedians = Defined(mean(outerVals))
	}
	inner, iok := cmp.InnerMeanOfMedians.Float()
	outer, ook := cmp.OuterMeanOfMedians.Float()
	if iok && ook {
		cmp.GapSeconds = Defined(outer - inner)
	}
	return cmp
}
