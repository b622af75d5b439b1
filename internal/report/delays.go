package report

import (
	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// How many delay codes appear individually before the tail collapses
// into Others.
const topDelayCodes = 4

// OtherDelays rolls the delay codes beyond the top group into one line.
// No median is reported for the merged tail.
type OtherDelays struct {
	Codes        int         `json:"codes"`
	Count        int         `json:"count"`
	Share        stats.Value `json:"share_of_rows"`
	CountOver6   int         `json:"count_over_6min"`
	ShareOfOver6 stats.Value `json:"share_of_over_6min"`
}

// DelayReport explains the responses that missed the six-minute
// standard: which recorded causes carry them, and how many carried no
// cause at all.
type DelayReport struct {
	Scope          stats.Scope       `json:"scope"`
	Over6Count     int               `json:"over_6min_count"`
	NotHeldUpShare stats.Value       `json:"not_held_up_share"`
	Top            []stats.DelayStat `json:"top"`
	Others         *OtherDelays      `json:"others,omitempty"`
}

// ComputeDelays assembles the delay-cause payload for the subset.
func ComputeDelays(s *filter.Subset) (*DelayReport, error) {
	breakdown, scope, err := stats.DelayBreakdown(s)
	if err != nil {
		return nil, err
	}

	rep := &DelayReport{Scope: scope}
	for _, st := range breakdown {
		rep.Over6Count += st.CountOver6
		if st.Code == enrich.NotHeldUp {
			rep.NotHeldUpShare = st.Share
		}
	}

	if len(breakdown) <= topDelayCodes {
		rep.Top = breakdown
		return rep, nil
	}

	rep.Top = breakdown[:topDelayCodes]
	others := &OtherDelays{Codes: len(breakdown) - topDelayCodes}
	for _, st := range breakdown[topDelayCodes:] {
		others.Count += st.Count
		others.CountOver6 += st.CountOver6
	}
	if s.Len() > 0 {
		others.Share = stats.Defined(float64(others.Count) / float64(s.Len()))
	}
	if rep.Over6Count > 0 {
		others.ShareOfOver6 = stats.Defined(float64(others.CountOver6) / float64(rep.Over6Count))
	}
	rep.Others = others
	return rep, nil
}
