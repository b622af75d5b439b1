package stats

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/schema"
)

// GroupKey selects the dimension for a group-by summary.
type GroupKey string

// Supported grouping dimensions.
const (
	GroupBorough   GroupKey = "borough"
	GroupType      GroupKey = "incident_type"
	GroupMonth     GroupKey = "month"
	GroupHour      GroupKey = "hour_of_day"
	GroupYear      GroupKey = "year"
	GroupYearMonth GroupKey = "year_month"
)

// Group is one row of a group-by summary. A group whose rows all lack
// a response time reports undefined statistics, never zero.
type Group struct {
	Key            string `json:"key"`
	Order          int    `json:"-"`
	Scope          Scope  `json:"scope"`
	MeanResponse   Value  `json:"mean_response_seconds"`
	MedianResponse Value  `json:"median_response_seconds"`
	Within6Rate    Value  `json:"within_6min_rate"`
	Within10Rate   Value  `json:"within_10min_rate"`
}

// GroupBy summarizes the subset per distinct value of key. Groups come
// back in natural order: numeric for month and hour, lexical
// otherwise. Only values present in the subset produce a group. An
// unrecognized key is a contract violation and fails with the schema
// sentinel.
func GroupBy(s *filter.Subset, key GroupKey) ([]Group, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	keyFn, err := groupKeyFunc(key)
	if err != nil {
		return nil, err
	}

	accs := make(map[string]*groupAcc)
	for i := range s.Len() {
		inc := s.At(i)
		label, order := keyFn(inc)
		acc := accs[label]
		if acc == nil {
			acc = &groupAcc{order: order}
			accs[label] = acc
		}
		acc.add(inc)
	}

	groups := make([]Group, 0, len(accs))
	for label, acc := range accs {
		groups = append(groups, acc.group(label))
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Order != groups[j].Order {
			return groups[i].Order < groups[j].Order
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

func groupKeyFunc(key GroupKey) (func(*dataset.Incident) (string, int), error) {
	switch key {
	case GroupBorough:
		return func(inc *dataset.Incident) (string, int) { return inc.Borough, 0 }, nil
	case GroupType:
		return func(inc *dataset.Incident) (string, int) { return inc.Type, 0 }, nil
	case GroupMonth:
		return func(inc *dataset.Incident) (string, int) { return strconv.Itoa(inc.Month), inc.Month }, nil
	case GroupHour:
		return func(inc *dataset.Incident) (string, int) { return strconv.Itoa(inc.Hour), inc.Hour }, nil
	case GroupYear:
		return func(inc *dataset.Incident) (string, int) { return strconv.Itoa(inc.Year), inc.Year }, nil
	case GroupYearMonth:
		return func(inc *dataset.Incident) (string, int) {
			return fmt.Sprintf("%04d-%02d", inc.Year, inc.Month), inc.Year*100 + inc.Month
		}, nil
	default:
		return nil, eris.Wrapf(schema.ErrSchema, "stats: unknown group key %q", string(key))
	}
}

type groupAcc struct {
	order     int
	total     int
	responses []float64
	w6Defined int
	w6Met     int
	w10Def    int
	w10Met    int
}

func (a *groupAcc) add(inc *dataset.Incident) {
	a.total++
	if inc.Response.Valid {
		a.responses = append(a.responses, inc.Response.Seconds)
	}
	if inc.Within6.Valid {
		a.w6Defined++
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
}

func (a *groupAcc) group(label string) Group {
	g := Group{
		Key:   label,
		Order: a.order,
		Scope: Scope{Total: a.total, Defined: len(a.responses)},
	}
	if len(a.responses) > 0 {
		sort.Float64s(a.responses)
		g.MeanResponse = Defined(mean(a.responses))
		g.MedianResponse = Defined(percentile(a.responses, 0.5))
	}
	if a.w6Defined > 0 {
		g.Within6Rate = Defined(float64(a.w6Met) / float64(a.w6Defined))
	}
	if a.w10Def > 0 {
		g.Within10Rate = Defined(float64(a.w10Met) / float64(a.w10Def))
	}
	return g
}
