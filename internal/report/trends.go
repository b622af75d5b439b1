package report

import (
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// SeriesPoint is one step of a temporal profile.
type SeriesPoint struct {
	Label             string      `json:"label"`
	Count             int         `json:"count"`
	MedianResponseMin stats.Value `json:"median_response_min"`
	Within6Rate       stats.Value `json:"within_6min_rate"`
}

// Trends carries the monthly series, the hour-of-day profile and the
// yearly totals, with the callouts the narrative leads with. Month
// labels are calendar months ("2023-07"); hour labels are 0 to 23.
type Trends struct {
	Monthly      []SeriesPoint `json:"monthly"`
	Hourly       []SeriesPoint `json:"hourly"`
	Yearly       []SeriesPoint `json:"yearly"`
	BusiestMonth string        `json:"busiest_month,omitempty"`
	SlowestMonth string        `json:"slowest_month,omitempty"`
	SlowestHour  string        `json:"slowest_hour,omitempty"`
	FastestHour  string        `json:"fastest_hour,omitempty"`
}

// ComputeTrends assembles the temporal profiles for the subset.
func ComputeTrends(s *filter.Subset) (*Trends, error) {
	monthly, err := seriesOf(s, stats.GroupYearMonth)
	if err != nil {
		return nil, err
	}
	hourly, err := seriesOf(s, stats.GroupHour)
	if err != nil {
		return nil, err
	}
	yearly, err := seriesOf(s, stats.GroupYear)
	if err != nil {
		return nil, err
	}

	return &Trends{
		Monthly:      monthly,
		Hourly:       hourly,
		Yearly:       yearly,
		BusiestMonth: busiestLabel(monthly),
		SlowestMonth: slowestLabel(monthly),
		SlowestHour:  slowestLabel(hourly),
		FastestHour:  fastestLabel(hourly),
	}, nil
}

func seriesOf(s *filter.Subset, key stats.GroupKey) ([]SeriesPoint, error) {
	groups, err := stats.GroupBy(s, key)
	if err != nil {
		return nil, err
	}
	points := make([]SeriesPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, SeriesPoint{
			Label:             g.Key,
			Count:             g.Scope.Total,
			MedianResponseMin: minutes(g.MedianResponse),
			Within6Rate:       g.Within6Rate,
		})
	}
	return points, nil
}

// busiestLabel returns the label with the highest volume, first wins on
// ties.
func busiestLabel(points []SeriesPoint) string {
	best := ""
	bestCount := -1
	for _, p := range points {
		if p.Count > bestCount {
			best, bestCount = p.Label, p.Count
		}
	}
	return best
}

func slowestLabel(points []SeriesPoint) string {
	return extremeMedian(points, func(candidate, incumbent float64) bool { return candidate > incumbent })
}

func fastestLabel(points []SeriesPoint) string {
	return extremeMedian(points, func(candidate, incumbent float64) bool { return candidate < incumbent })
}

func extremeMedian(points []SeriesPoint, better func(candidate, incumbent float64) bool) string {
	best := ""
	var bestMedian float64
	for _, p := range points {
		med, ok := p.MedianResponseMin.Float()
		if !ok {
			continue
		}
		if best == "" || better(med, bestMedian) {
			best, bestMedian = p.Label, med
		}
	}
	return best
}
