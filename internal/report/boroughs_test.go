package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lfb-cli/internal/dataset"
)

func boroughRow(id, name string, seconds float64, inner bool, areaKm2 float64, population int64) dataset.Incident {
	inc := respRow(id, seconds)
	inc.Borough = name
	inc.Inner = inner
	inc.AreaKm2 = areaKm2
	inc.Population = population
	inc.Turnout = dataset.Dur(80)
	inc.Travel = dataset.Dur(seconds - 80)
	return inc
}

func TestComputeBoroughs(t *testing.T) {
	rep, err := ComputeBoroughs(subsetOf(t,
		boroughRow("a", "Camden", 300, true, 21.8, 210390),
		boroughRow("b", "Camden", 340, true, 21.8, 210390),
		boroughRow("c", "Hackney", 380, true, 19.1, 259956),
		boroughRow("d", "Bromley", 500, false, 150.1, 330795),
		boroughRow("e", "Bromley", 520, false, 150.1, 330795),
		boroughRow("f", "Havering", 460, false, 112.3, 262052),
	))
	require.NoError(t, err)

	require.Len(t, rep.Table, 4)

	require.NotNil(t, rep.FastestMedian)
	assert.Equal(t, "Camden", rep.FastestMedian.Borough)
	assert.InDelta(t, 320, defined(t, rep.FastestMedian.Value), 1e-9)

	require.NotNil(t, rep.SlowestMedian)
	assert.Equal(t, "Bromley", rep.SlowestMedian.Borough)
	assert.InDelta(t, 510, defined(t, rep.SlowestMedian.Value), 1e-9)

	assert.InDelta(t, 190, defined(t, rep.SpreadSeconds), 1e-9)

	require.NotNil(t, rep.BestCompliance)
	assert.Equal(t, "Camden", rep.BestCompliance.Borough)
	assert.InDelta(t, 1, defined(t, rep.BestCompliance.Value), 1e-9)
	require.NotNil(t, rep.WorstCompliance)
	assert.Equal(t, "Bromley", rep.WorstCompliance.Borough, "zero-rate ties keep the first by name")

	assert.Equal(t, 2, rep.Rings.InnerBoroughs)
	assert.Equal(t, 2, rep.Rings.OuterBoroughs)
	assert.InDelta(t, 350, defined(t, rep.Rings.InnerMeanOfMedians), 1e-9)
	assert.InDelta(t, 485, defined(t, rep.Rings.OuterMeanOfMedians), 1e-9)
	assert.InDelta(t, 135, defined(t, rep.Rings.GapSeconds), 1e-9)
	assert.Equal(t, 2, rep.RingVariance.DF2)
	assert.True(t, rep.RingVariance.F.Defined())

	require.Len(t, rep.SlowestSplits, 4, "fewer boroughs than the cap keeps them all")
	first := rep.SlowestSplits[0]
	assert.Equal(t, "Bromley", first.Borough)
	assert.InDelta(t, 510.0/60, defined(t, first.MedianResponseMin), 1e-9)
	assert.InDelta(t, 80, defined(t, first.MedianTurnoutSec), 1e-9)
	assert.InDelta(t, 430, defined(t, first.MedianTravelSec), 1e-9)
	assert.InDelta(t, 430.0/510.0, defined(t, first.TravelShare), 1e-9)
}

func TestComputeBoroughs_SplitCap(t *testing.T) {
	var rows []dataset.Incident
	for i := range 12 {
		name := string(rune('A' + i))
		rows = append(rows, boroughRow(name, "Borough "+name, float64(400+i*10), i%2 == 0, 50, 100000))
	}

	rep, err := ComputeBoroughs(subsetOf(t, rows...))
	require.NoError(t, err)

	require.Len(t, rep.SlowestSplits, 10)
	assert.Equal(t, "Borough L", rep.SlowestSplits[0].Borough, "slowest first")
	assert.Equal(t, "Borough C", rep.SlowestSplits[9].Borough, "the two fastest fall off")
}

func TestComputeBoroughs_EmptySubset(t *testing.T) {
	rep, err := ComputeBoroughs(subsetOf(t))
	require.NoError(t, err)

	assert.Empty(t, rep.Table)
	assert.Nil(t, rep.FastestMedian)
	assert.Nil(t, rep.SlowestMedian)
	assert.False(t, rep.SpreadSeconds.Defined())
	assert.False(t, rep.Rings.GapSeconds.Defined())
	assert.Empty(t, rep.SlowestSplits)
}
