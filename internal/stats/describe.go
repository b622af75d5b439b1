package stats

import (
	"sort"

	"github.com/sells-group/lfb-cli/internal/filter"
)

// Summary bundles the central-tendency and compliance statistics for
// one subset.
type Summary struct {
	Scope          Scope `json:"scope"`
	MeanResponse   Value `json:"mean_response_seconds"`
	MedianResponse Value `json:"median_response_seconds"`
	P90Response    Value `json:"p90_response_seconds"`
	Within6Rate    Value `json:"within_6min_rate"`
	Within10Rate   Value `json:"within_10min_rate"`
}

// Describe computes the summary statistics over rows with a defined
// response time. The 90th percentile of the response distribution and
// the within-10-minutes fraction are deliberately separate figures;
// one is a duration, the other a rate.
func Describe(s *filter.Subset) (Summary, error) {
	if err := s.Check(); err != nil {
		return Summary{}, err
	}

	resp := responses(s)
	sum := Summary{
		Scope:        Scope{Total: s.Len(), Defined: len(resp)},
		Within6Rate:  complianceRate(s, within6),
		Within10Rate: complianceRate(s, within10),
	}
	if len(resp) == 0 {
		return sum, nil
	}

	sum.MeanResponse = Defined(mean(resp))
	sum.MedianResponse = Defined(percentile(resp, 0.5))
	sum.P90Response = Defined(percentile(resp, 0.9))
	return sum, nil
}

// ComplianceRate returns the fraction of rows meeting the six-minute
// standard among rows where the flag is defined.
func ComplianceRate(s *filter.Subset) (Value, error) {
	if err := s.Check(); err != nil {
		return Undefined(), err
	}
	return complianceRate(s, within6), nil
}

// ExceedanceRate returns the fraction of defined response times
// strictly greater than the given bound in seconds.
func ExceedanceRate(s *filter.Subset, seconds float64) (Value, error) {
	if err := s.Check(); err != nil {
		return Undefined(), err
	}
	var defined, over int
	for i := range s.Len() {
		if r := s.At(i).Response; r.Valid {
			defined++
			if r.Seconds > seconds {
				over++
			}
		}
	}
	if defined == 0 {
		return Undefined(), nil
	}
	return Defined(float64(over) / float64(defined)), nil
}

type flagKind int

const (
	within6 flagKind = iota
	within10
)

func complianceRate(s *filter.Subset, kind flagKind) Value {
	var defined, met int
	for i := range s.Len() {
		inc := s.At(i)
		flag := inc.Within6
		if kind == within10 {
			flag = inc.Within10
		}
		if !flag.Valid {
			continue
		}
		defined++
		if flag.Value {
			met++
		}
	}
	if defined == 0 {
		return Undefined()
	}
	return Defined(float64(met) / float64(defined))
}

// responses returns the defined response times in ascending order.
func responses(s *filter.Subset) []float64 {
	out := make([]float64, 0, s.Len())
	for i := range s.Len() {
		if r := s.At(i).Response; r.Valid {
			out = append(out, r.Seconds)
		}
	}
	sort.Float64s(out)
	return out
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// percentile returns the q-th quantile (q in [0,1]) of sorted values
// with linear interpolation between closest ranks, so the median of an
// even count is the mean of the two middle values.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := q * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func iqr(sorted []float64) float64 {
	return percentile(sorted, 0.75) - percentile(sorted, 0.25)
}
