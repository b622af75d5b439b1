package report

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// Extreme-delay thresholds, in seconds.
const (
	over10Bound = 600
	over15Bound = 900
)

// TypeShare is one slice of the incident mix.
type TypeShare struct {
	Type              string      `json:"type"`
	Count             int         `json:"count"`
	Share             stats.Value `json:"share"`
	MedianResponseMin stats.Value `json:"median_response_min"`
}

// Overview is the headline payload for one selection: volume, central
// tendency, compliance, the extreme-delay tail, the attendance bands,
// the incident mix, and the cleaning report behind it all.
type Overview struct {
	TotalIncidents    int                    `json:"total_incidents"`
	Responses         stats.Scope            `json:"responses"`
	MedianResponseMin stats.Value            `json:"median_response_min"`
	MeanResponseMin   stats.Value            `json:"mean_response_min"`
	P90ResponseMin    stats.Value            `json:"p90_response_min"`
	Within6Rate       stats.Value            `json:"within_6min_rate"`
	Within10Rate      stats.Value            `json:"within_10min_rate"`
	Over10Share       stats.Value            `json:"over_10min_share"`
	Over15Share       stats.Value            `json:"over_15min_share"`
	MeanMedianGapSec  stats.Value            `json:"mean_median_gap_seconds"`
	Bands             []stats.Band           `json:"bands"`
	Mix               []TypeShare            `json:"incident_mix"`
	Cleaning          dataset.CleaningReport `json:"cleaning"`
}

// ComputeOverview assembles the headline KPIs for the subset.
func ComputeOverview(s *filter.Subset) (*Overview, error) {
	sum, err := stats.Describe(s)
	if err != nil {
		return nil, err
	}
	over10, err := stats.ExceedanceRate(s, over10Bound)
	if err != nil {
		return nil, err
	}
	over15, err := stats.ExceedanceRate(s, over15Bound)
	if err != nil {
		return nil, err
	}
	bands, _, err := stats.ResponseBands(s)
	if err != nil {
		return nil, err
	}
	mix, err := incidentMix(s)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		TotalIncidents:    s.Len(),
		Responses:         sum.Scope,
		MedianResponseMin: minutes(sum.MedianResponse),
		MeanResponseMin:   minutes(sum.MeanResponse),
		P90ResponseMin:    minutes(sum.P90Response),
		Within6Rate:       sum.Within6Rate,
		Within10Rate:      sum.Within10Rate,
		Over10Share:       over10,
		Over15Share:       over15,
		Bands:             bands,
		Mix:               mix,
		Cleaning:          s.Base().Cleaning,
	}
	if mean, ok := sum.MeanResponse.Float(); ok {
		if med, ok := sum.MedianResponse.Float(); ok {
			ov.MeanMedianGapSec = stats.Defined(mean - med)
		}
	}
	return ov, nil
}

// incidentMix tabulates incident types by volume, busiest first.
func incidentMix(s *filter.Subset) ([]TypeShare, error) {
	groups, err := stats.GroupBy(s, stats.GroupType)
	if err != nil {
		return nil, err
	}

	mix := make([]TypeShare, 0, len(groups))
	for _, g := range groups {
		ts := TypeShare{
			Type:              g.Key,
			Count:             g.Scope.Total,
			MedianResponseMin: minutes(g.MedianResponse),
		}
		if s.Len() > 0 {
			ts.Share = stats.Defined(float64(g.Scope.Total) / float64(s.Len()))
		}
		mix = append(mix, ts)
	}
	sort.Slice(mix, func(i, j int) bool {
		if mix[i].Count != mix[j].Count {
			return mix[i].Count > mix[j].Count
		}
		return mix[i].Type < mix[j].Type
	})
	return mix, nil
}
