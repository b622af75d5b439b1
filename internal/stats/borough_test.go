package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/enrich"
)

func attrRow(id, borough string, seconds float64, inner bool, areaKm2 float64, population int64) dataset.Incident {
	inc := respRow(id, seconds)
	inc.Borough = borough
	inc.Inner = inner
	inc.AreaKm2 = areaKm2
	inc.Population = population
	inc.Turnout = dataset.Dur(seconds * 0.25)
	inc.Travel = dataset.Dur(seconds * 0.75)
	return inc
}

func TestByBorough(t *testing.T) {
	boroughs, err := ByBorough(subsetOf(t,
		attrRow("a", "Camden", 300, true, 21.8, 210390),
		attrRow("b", "Camden", 340, true, 21.8, 210390),
		attrRow("c", "Bromley", 500, false, 150.1, 330795),
	))
	require.NoError(t, err)
	require.Len(t, boroughs, 2)

	bromley := boroughs[0]
	assert.Equal(t, "Bromley", bromley.Name)
	assert.False(t, bromley.Inner)
	assert.InDelta(t, 150.1, bromley.AreaKm2, 1e-9)
	assert.Equal(t, int64(330795), bromley.Population)
	assert.InDelta(t, 500, defined(t, bromley.MedianResponse), 1e-9)
	assert.InDelta(t, 0, defined(t, bromley.Within6Rate), 1e-9)

	camden := boroughs[1]
	assert.Equal(t, Scope{Total: 2, Defined: 2}, camden.Scope)
	assert.InDelta(t, 320, defined(t, camden.MedianResponse), 1e-9)
	assert.InDelta(t, 80, defined(t, camden.MedianTurnout), 1e-9)
	assert.InDelta(t, 240, defined(t, camden.MedianTravel), 1e-9)
	assert.InDelta(t, 1, defined(t, camden.Within6Rate), 1e-9)
}

func TestByBorough_NotHeldUpShare(t *testing.T) {
	clean := attrRow("a", "Camden", 300, true, 21.8, 210390)
	clean.DelayCode = enrich.NotHeldUp
	alsoClean := attrRow("b", "Camden", 320, true, 21.8, 210390)
	alsoClean.DelayCode = enrich.NotHeldUp
	held := attrRow("c", "Camden", 700, true, 21.8, 210390)
	held.DelayCode = "Traffic, roadworks"
	noResponse := missingRow("d")
	noResponse.Borough = "Camden"
	noResponse.DelayCode = enrich.NotHeldUp

	boroughs, err := ByBorough(subsetOf(t, clean, alsoClean, held, noResponse))
	require.NoError(t, err)
	require.Len(t, boroughs, 1)

	assert.InDelta(t, 3.0/4.0, defined(t, boroughs[0].NotHeldUpShare), 1e-9,
		"share runs over all rows, response or not")
}

func TestByBorough_UndefinedGroup(t *testing.T) {
	quiet := missingRow("a")
	quiet.Borough = "Havering"

	boroughs, err := ByBorough(subsetOf(t, quiet))
	require.NoError(t, err)
	require.Len(t, boroughs, 1)

	assert.Equal(t, Scope{Total: 1, Defined: 0}, boroughs[0].Scope)
	assert.False(t, boroughs[0].MedianResponse.Defined())
	assert.False(t, boroughs[0].Within6Rate.Defined())
}

func TestByBorough_EmptySubset(t *testing.T) {
	boroughs, err := ByBorough(subsetOf(t))
	require.NoError(t, err)
	assert.Empty(t, boroughs)
}

func TestCompareRings(t *testing.T) {
	cmp := CompareRings([]BoroughStat{
		{Name: "Camden", Inner: true, MedianResponse: Defined(300)},
		{Name: "Hackney", Inner: true, MedianResponse: Defined(320)},
		{Name: "Islington", Inner: true}, // no defined median
		{Name: "Bromley", Inner: false, MedianResponse: Defined(360)},
		{Name: "Havering", Inner: false, MedianResponse: Defined(380)},
	})

	assert.Equal(t, 3, cmp.InnerBoroughs)
	assert.Equal(t, 2, cmp.OuterBoroughs)
	assert.InDelta(t, 310, defined(t, cmp.InnerMeanOfMedians), 1e-9)
	assert.InDelta(t, 370, defined(t, cmp.OuterMeanOfMedians), 1e-9)
	assert.InDelta(t, 60, defined(t, cmp.GapSeconds), 1e-9)
}

func TestCompareRings_OneSideUndefined(t *testing.T) {
	cmp := CompareRings([]BoroughStat{
		{Name: "Camden", Inner: true, MedianResponse: Defined(300)},
		{Name: "Bromley", Inner: false},
	})

	assert.True(t, cmp.InnerMeanOfMedians.Defined())
	assert.False(t, cmp.OuterMeanOfMedians.Defined())
	assert.False(t, cmp.GapSeconds.Defined())
}
