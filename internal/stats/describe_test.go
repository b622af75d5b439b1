package stats

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/schema"
)

func subsetOf(t *testing.T, rows ...dataset.Incident) *filter.Subset {
	t.Helper()
	ds := &dataset.Dataset{Enriched: true, Rows: rows}
	sub, err := filter.Apply(ds, filter.Selection{})
	require.NoError(t, err)
	return sub
}

// respRow builds an incident with a defined response time and the
// attendance flags set the way enrichment sets them.
func respRow(id string, seconds float64) dataset.Incident {
	return dataset.Incident{
		ID:       id,
		Response: dataset.Dur(seconds),
		Within6:  dataset.FlagOf(seconds <= 360),
		Within10: dataset.FlagOf(seconds <= 600),
	}
}

func missingRow(id string) dataset.Incident {
	return dataset.Incident{ID: id}
}

func defined(t *testing.T, v Value) float64 {
	t.Helper()
	f, ok := v.Float()
	require.True(t, ok, "expected a defined value")
	return f
}

func TestDescribe_OverDefinedRowsOnly(t *testing.T) {
	rows := []dataset.Incident{
		respRow("a", 200),
		respRow("b", 250),
		respRow("c", 300),
		respRow("d", 350),
		respRow("e", 400),
		respRow("f", 900),
		missingRow("g"),
		missingRow("h"),
		missingRow("i"),
		missingRow("j"),
	}
	sum, err := Describe(subsetOf(t, rows...))
	require.NoError(t, err)

	assert.Equal(t, Scope{Total: 10, Defined: 6}, sum.Scope)
	assert.InDelta(t, 325, defined(t, sum.MedianResponse), 1e-9, "even count takes the mean of the middle pair")
	assert.InDelta(t, 400, defined(t, sum.MeanResponse), 1e-9)
	assert.InDelta(t, 4.0/6.0, defined(t, sum.Within6Rate), 1e-9)
	assert.InDelta(t, 5.0/6.0, defined(t, sum.Within10Rate), 1e-9)
}

func TestDescribe_P90IsNotTheWithin10Rate(t *testing.T) {
	rows := []dataset.Incident{
		respRow("a", 200),
		respRow("b", 250),
		respRow("c", 300),
		respRow("d", 350),
		respRow("e", 400),
		respRow("f", 900),
	}
	sum, err := Describe(subsetOf(t, rows...))
	require.NoError(t, err)

	// One is a duration, the other a fraction.
	assert.InDelta(t, 650, defined(t, sum.P90Response), 1e-9)
	assert.InDelta(t, 5.0/6.0, defined(t, sum.Within10Rate), 1e-9)
}

func TestDescribe_EmptySubset(t *testing.T) {
	sum, err := Describe(subsetOf(t))
	require.NoError(t, err)

	assert.Equal(t, Scope{}, sum.Scope)
	assert.False(t, sum.MeanResponse.Defined())
	assert.False(t, sum.MedianResponse.Defined())
	assert.False(t, sum.P90Response.Defined())
	assert.False(t, sum.Within6Rate.Defined())
	assert.False(t, sum.Within10Rate.Defined())
}

func TestDescribe_AllMissing(t *testing.T) {
	sum, err := Describe(subsetOf(t, missingRow("a"), missingRow("b")))
	require.NoError(t, err)

	assert.Equal(t, Scope{Total: 2, Defined: 0}, sum.Scope)
	assert.False(t, sum.MedianResponse.Defined())
	assert.False(t, sum.Within6Rate.Defined())
}

func TestDescribe_MalformedSubset(t *testing.T) {
	_, err := Describe(&filter.Subset{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, schema.ErrSchema))
}

func TestComplianceRate_Range(t *testing.T) {
	cases := [][]dataset.Incident{
		{respRow("a", 100)},
		{respRow("a", 100), respRow("b", 700)},
		{respRow("a", 700)},
		{respRow("a", 100), missingRow("b")},
	}
	for _, rows := range cases {
		rate, err := ComplianceRate(subsetOf(t, rows...))
		require.NoError(t, err)
		v := defined(t, rate)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	rate, err := ComplianceRate(subsetOf(t, missingRow("a")))
	require.NoError(t, err)
	assert.False(t, rate.Defined())
}

func TestExceedanceRate(t *testing.T) {
	sub := subsetOf(t,
		respRow("a", 200),
		respRow("b", 650),
		respRow("c", 700),
		respRow("d", 950),
		missingRow("e"),
	)

	over10, err := ExceedanceRate(sub, 600)
	require.NoError(t, err)
	assert.InDelta(t, 3.0/4.0, defined(t, over10), 1e-9, "missing rows stay out of the denominator")

	over15, err := ExceedanceRate(sub, 900)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/4.0, defined(t, over15), 1e-9)

	atBound, err := ExceedanceRate(subsetOf(t, respRow("a", 600)), 600)
	require.NoError(t, err)
	assert.InDelta(t, 0, defined(t, atBound), 1e-9, "the bound itself does not exceed")

	empty, err := ExceedanceRate(subsetOf(t, missingRow("a")), 600)
	require.NoError(t, err)
	assert.False(t, empty.Defined())
}

func TestPercentile(t *testing.T) {
	assert.InDelta(t, 42, percentile([]float64{42}, 0.9), 1e-9)
	assert.InDelta(t, 15, percentile([]float64{10, 20}, 0.5), 1e-9)
	assert.InDelta(t, 10, percentile([]float64{10, 20}, 0), 1e-9)
	assert.InDelta(t, 20, percentile([]float64{10, 20}, 1), 1e-9)
	assert.InDelta(t, 650, percentile([]float64{200, 250, 300, 350, 400, 900}, 0.9), 1e-9)
}

func TestIQR(t *testing.T) {
	// Quartiles by linear interpolation: q1=2, q3=4.
	assert.InDelta(t, 2, iqr([]float64{1, 2, 3, 4, 5}), 1e-9)
	assert.InDelta(t, 0, iqr([]float64{7, 7, 7}), 1e-9)
}
