package stats

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/filter"
)

// Decomposition splits response time into its turnout and travel
// components over rows where both are defined. Shares are the mean of
// per-row ratios, so TurnoutShare and TravelShare sum to one whenever
// defined. Turnout dispersion is reported on its own; its flatness
// across geography is a finding, not noise.
type Decomposition struct {
	Scope         Scope `json:"scope"`
	TurnoutShare  Value `json:"turnout_share"`
	TravelShare   Value `json:"travel_share"`
	MeanTurnout   Value `json:"mean_turnout_seconds"`
	MeanTravel    Value `json:"mean_travel_seconds"`
	MedianTurnout Value `json:"median_turnout_seconds"`
	MedianTravel  Value `json:"median_travel_seconds"`
	TurnoutIQR    Value `json:"turnout_iqr_seconds"`
	TravelIQR     Value `json:"travel_iqr_seconds"`
}

// Decompose computes the turnout/travel decomposition for the subset.
// Rows summing to a zero response contribute no ratio.
func Decompose(s *filter.Subset) (Decomposition, error) {
	if err := s.Check(); err != nil {
		return Decomposition{}, err
	}

	var (
		turnouts   []float64
		travels    []float64
		shareSum   float64
		shareCount int
	)
	for i := range s.Len() {
		inc := s.At(i)
		if !inc.Turnout.Valid || !inc.Travel.Valid {
			continue
		}
		turnouts = append(turnouts, inc.Turnout.Seconds)
		travels = append(travels, inc.Travel.Seconds)
		if total := inc.Turnout.Seconds + inc.Travel.Seconds; total > 0 {
			shareSum += inc.Turnout.Seconds / total
			shareCount++
		}
	}

	dec := Decomposition{Scope: Scope{Total: s.Len(), Defined: len(turnouts)}}
	if len(turnouts) == 0 {
		return dec, nil
	}

	sort.Float64s(turnouts)
	sort.Float64s(travels)
	dec.MeanTurnout = Defined(mean(turnouts))
	dec.MeanTravel = Defined(mean(travels))
	dec.MedianTurnout = Defined(percentile(turnouts, 0.5))
	dec.MedianTravel = Defined(percentile(travels, 0.5))
	dec.TurnoutIQR = Defined(iqr(turnouts))
	dec.TravelIQR = Defined(iqr(travels))
	if shareCount > 0 {
		share := shareSum / float64(shareCount)
		dec.TurnoutShare = Defined(share)
		dec.TravelShare = Defined(1 - share)
	}
	return dec, nil
}
