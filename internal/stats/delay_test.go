package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/enrich"
)

func delayRow(id string, seconds float64, code string) dataset.Incident {
	inc := respRow(id, seconds)
	inc.DelayCode = code
	return inc
}

func TestDelayBreakdown(t *testing.T) {
	late := missingRow("c")
	late.DelayCode = enrich.NotHeldUp

	stats, scope, err := DelayBreakdown(subsetOf(t,
		delayRow("a", 300, enrich.NotHeldUp),
		delayRow("b", 400, enrich.NotHeldUp),
		late,
		delayRow("d", 700, "Traffic, roadworks"),
		delayRow("e", 650, "Traffic, roadworks"),
		delayRow("f", 200, "Appliance redeployed"),
	))
	require.NoError(t, err)

	assert.Equal(t, Scope{Total: 6, Defined: 5}, scope)
	require.Len(t, stats, 3)

	traffic := stats[0]
	assert.Equal(t, "Traffic, roadworks", traffic.Code)
	assert.Equal(t, 2, traffic.Count)
	assert.Equal(t, 2, traffic.CountOver6)
	assert.InDelta(t, 675, defined(t, traffic.MedianResponse), 1e-9)
	assert.InDelta(t, 2.0/3.0, defined(t, traffic.ShareOfOver6), 1e-9)

	notHeld := stats[1]
	assert.Equal(t, enrich.NotHeldUp, notHeld.Code)
	assert.Equal(t, 3, notHeld.Count)
	assert.Equal(t, 1, notHeld.CountOver6)
	assert.InDelta(t, 0.5, defined(t, notHeld.Share), 1e-9)
	assert.InDelta(t, 350, defined(t, notHeld.MedianResponse), 1e-9, "median skips the missing row")
	assert.InDelta(t, 1.0/3.0, defined(t, notHeld.ShareOfOver6), 1e-9)

	redeployed := stats[2]
	assert.Equal(t, 0, redeployed.CountOver6)
	assert.InDelta(t, 0, defined(t, redeployed.ShareOfOver6), 1e-9)
}

func TestDelayBreakdown_NoExceedances(t *testing.T) {
	stats, _, err := DelayBreakdown(subsetOf(t,
		delayRow("a", 100, enrich.NotHeldUp),
		delayRow("b", 200, enrich.NotHeldUp),
	))
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, 0, stats[0].CountOver6)
	assert.False(t, stats[0].ShareOfOver6.Defined(), "no exceeders means no denominator")
	assert.InDelta(t, 1, defined(t, stats[0].Share), 1e-9)
}

func TestDelayBreakdown_CodeWithoutResponses(t *testing.T) {
	ghost := missingRow("a")
	ghost.DelayCode = "Address incomplete"

	stats, _, err := DelayBreakdown(subsetOf(t, ghost, delayRow("b", 500, enrich.NotHeldUp)))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	for _, st := range stats {
		if st.Code == "Address incomplete" {
			assert.False(t, st.MedianResponse.Defined())
		}
	}
}

func TestDelayBreakdown_EmptySubset(t *testing.T) {
	stats, scope, err := DelayBreakdown(subsetOf(t))
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.Equal(t, Scope{}, scope)
}
