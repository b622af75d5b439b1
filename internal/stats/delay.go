package stats

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/filter"
)

// DelayStat describes one delay code: how often it occurs, the typical
// response time it carries, and how often its incidents miss the
// six-minute standard.
type DelayStat struct {
	Code           string `json:"code"`
	Count          int    `json:"count"`
	Share          Value  `json:"share_of_rows"`
	MedianResponse Value  `json:"median_response_seconds"`
	CountOver6     int    `json:"count_over_6min"`
	ShareOfOver6   Value  `json:"share_of_over_6min"`
}

// DelayBreakdown tabulates delay codes across the subset, ordered by
// their weight among incidents over six minutes. ShareOfOver6 answers
// "of the incidents that missed the standard, what fraction carried
// this code"; rows without a defined response time count toward Share
// but not toward the exceedance figures.
func DelayBreakdown(s *filter.Subset) ([]DelayStat, Scope, error) {
	if err := s.Check(); err != nil {
		return nil, Scope{}, err
	}

	type acc struct {
		count     int
		over6     int
		responses []float64
	}
	accs := make(map[string]*acc)
	var totalOver6, defined int

	for i := range s.Len() {
		inc := s.At(i)
		a := accs[inc.DelayCode]
		if a == nil {
			a = &acc{}
			accs[inc.DelayCode] = a
		}
		a.count++
		if !inc.Response.Valid {
			continue
		}
		defined++
		a.responses = append(a.responses, inc.Response.Seconds)
		if !inc.Within6.Valid || inc.Within6.Value {
			continue
		}
		a.over6++
		totalOver6++
	}

	scope := Scope{Total: s.Len(), Defined: defined}
	out := make([]DelayStat, 0, len(accs))
	for code, a := range accs {
		st := DelayStat{Code: code, Count: a.count, CountOver6: a.over6}
		if s.Len() > 0 {
			st.Share = Defined(float64(a.count) / float64(s.Len()))
		}
		if len(a.responses) > 0 {
			sort.Float64s(a.responses)
			st.MedianResponse = Defined(percentile(a.responses, 0.5))
		}
		if totalOver6 > 0 {
			st.ShareOfOver6 = Defined(float64(a.over6) / float64(totalOver6))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CountOver6 != out[j].CountOver6 {
			return out[i].CountOver6 > out[j].CountOver6
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out, scope, nil
}
