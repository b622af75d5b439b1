package stats

import (
	"github.com/sells-group/lfb-cli/internal/filter"
)

// Band is one slice of the response-time distribution. To is zero for
// the open-ended top band.
type Band struct {
	Label string  `json:"label"`
	From  float64 `json:"from_seconds"`
	To    float64 `json:"to_seconds,omitempty"`
	Count int     `json:"count"`
	Share Value   `json:"share"`
}

// The attendance bands reported by the brigade.
var bandEdges = []struct {
	label string
	from  float64
	to    float64
}{
	{"0-6 min", 0, 360},
	{"6-8 min", 360, 480},
	{"8-10 min", 480, 600},
	{"10+ min", 600, 0},
}

// ResponseBands buckets defined response times into the standard
// attendance bands. Shares are fractions of the defined rows and sum
// to one when any are defined. Band membership is half-open: a row
// lands in the first band whose upper edge it does not exceed.
func ResponseBands(s *filter.Subset) ([]Band, Scope, error) {
	if err := s.Check(); err != nil {
		return nil, Scope{}, err
	}

	counts := make([]int, len(bandEdges))
	var defined int
	for i := range s.Len() {
		r := s.At(i).Response
		if !r.Valid {
			continue
		}
		defined++
		counts[bandIndex(r.Seconds)]++
	}

	scope := Scope{Total: s.Len(), Defined: defined}
	bands := make([]Band, len(bandEdges))
	for i, edge := range bandEdges {
		bands[i] = Band{
			Label: edge.label,
			From:  edge.from,
			To:    edge.to,
			Count: counts[i],
		}
		if defined > 0 {
			bands[i].Share = Defined(float64(counts[i]) / float64(defined))
		}
	}
	return bands, scope, nil
}

func bandIndex(seconds float64) int {
	for i, edge := range bandEdges {
		if edge.to > 0 && seconds <= edge.to {
			return i
		}
	}
	return len(bandEdges) - 1
}
