package report

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// How many boroughs the slowest-borough decomposition covers.
const slowestSplitCount = 10

// Ranking names the borough sitting at one extreme of a league table.
type Ranking struct {
	Borough string      `json:"borough"`
	Value   stats.Value `json:"value"`
}

// BoroughSplit decomposes one slow borough's median response into its
// turnout and travel medians. TravelShare here is the travel median
// over the sum of the two medians, a descriptive split of typical
// values rather than the per-row ratio the overall decomposition uses.
type BoroughSplit struct {
	Borough           string      `json:"borough"`
	MedianResponseMin stats.Value `json:"median_response_min"`
	MedianTurnoutSec  stats.Value `json:"median_turnout_seconds"`
	MedianTravelSec   stats.Value `json:"median_travel_seconds"`
	TravelShare       stats.Value `json:"travel_share"`
}

// BoroughReport is the borough-level payload: the full table, the
// league-table extremes, the Inner versus Outer contrast with its
// variance test, and the turnout/travel split of the slowest boroughs.
type BoroughReport struct {
	Table           []stats.BoroughStat  `json:"table"`
	FastestMedian   *Ranking             `json:"fastest_median,omitempty"`
	SlowestMedian   *Ranking             `json:"slowest_median,omitempty"`
	BestCompliance  *Ranking             `json:"best_compliance,omitempty"`
	WorstCompliance *Ranking             `json:"worst_compliance,omitempty"`
	SpreadSeconds   stats.Value          `json:"median_spread_seconds"`
	Rings           stats.RingComparison `json:"rings"`
	RingVariance    stats.FTest          `json:"ring_variance"`
	SlowestSplits   []BoroughSplit       `json:"slowest_decomposition"`
}

// ComputeBoroughs assembles the borough-level payload for the subset.
func ComputeBoroughs(s *filter.Subset) (*BoroughReport, error) {
	table, err := stats.ByBorough(s)
	if err != nil {
		return nil, err
	}

	rep := &BoroughReport{
		Table:        table,
		Rings:        stats.CompareRings(table),
		RingVariance: stats.VarianceRatio(table),
	}

	medianOf := func(b stats.BoroughStat) stats.Value { return b.MedianResponse }
	complianceOf := func(b stats.BoroughStat) stats.Value { return b.Within6Rate }
	rep.FastestMedian = extremeBorough(table, medianOf, false)
	rep.SlowestMedian = extremeBorough(table, medianOf, true)
	rep.BestCompliance = extremeBorough(table, complianceOf, true)
	rep.WorstCompliance = extremeBorough(table, complianceOf, false)

	if rep.FastestMedian != nil && rep.SlowestMedian != nil {
		hi, _ := rep.SlowestMedian.Value.Float()
		lo, _ := rep.FastestMedian.Value.Float()
		rep.SpreadSeconds = stats.Defined(hi - lo)
	}

	rep.SlowestSplits = slowestSplits(table)
	return rep, nil
}

// extremeBorough scans the table for the largest (or smallest) defined
// value of the picked statistic.
func extremeBorough(table []stats.BoroughStat, pick func(stats.BoroughStat) stats.Value, wantMax bool) *Ranking {
	var best *Ranking
	var bestVal float64
	for _, b := range table {
		v, ok := pick(b).Float()
		if !ok {
			continue
		}
		if best == nil || (wantMax && v > bestVal) || (!wantMax && v < bestVal) {
			best = &Ranking{Borough: b.Name, Value: stats.Defined(v)}
			bestVal = v
		}
	}
	return best
}

// slowestSplits decomposes the slowest boroughs by median response.
func slowestSplits(table []stats.BoroughStat) []BoroughSplit {
	ranked := make([]stats.BoroughStat, 0, len(table))
	for _, b := range table {
		if b.MedianResponse.Defined() {
			ranked = append(ranked, b)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi, _ := ranked[i].MedianResponse.Float()
		vj, _ := ranked[j].MedianResponse.Float()
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > slowestSplitCount {
		ranked = ranked[:slowestSplitCount]
	}

	splits := make([]BoroughSplit, 0, len(ranked))
	for _, b := range ranked {
		split := BoroughSplit{
			Borough:           b.Name,
			MedianResponseMin: minutes(b.MedianResponse),
			MedianTurnoutSec:  b.MedianTurnout,
			MedianTravelSec:   b.MedianTravel,
		}
		tu, tuOK := b.MedianTurnout.Float()
		tv, tvOK := b.MedianTravel.Float()
		if tuOK && tvOK && tu+tv > 0 {
			split.TravelShare = stats.Defined(tv / (tu + tv))
		}
		splits = append(splits, split)
	}
	return splits
}
