package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBands_Buckets(t *testing.T) {
	bands, scope, err := ResponseBands(subsetOf(t,
		respRow("a", 100),
		respRow("b", 360), // upper edge stays in the first band
		respRow("c", 400),
		respRow("d", 480),
		respRow("e", 550),
		respRow("f", 700),
		missingRow("g"),
	))
	require.NoError(t, err)
	require.Len(t, bands, 4)

	assert.Equal(t, Scope{Total: 7, Defined: 6}, scope)

	assert.Equal(t, "0-6 min", bands[0].Label)
	assert.Equal(t, 2, bands[0].Count)
	assert.Equal(t, "6-8 min", bands[1].Label)
	assert.Equal(t, 2, bands[1].Count)
	assert.Equal(t, "8-10 min", bands[2].Label)
	assert.Equal(t, 1, bands[2].Count)
	assert.Equal(t, "10+ min", bands[3].Label)
	assert.Equal(t, 1, bands[3].Count)

	var total float64
	for _, b := range bands {
		total += defined(t, b.Share)
	}
	assert.InDelta(t, 1, total, 1e-9, "shares sum to one")
}

func TestResponseBands_EmptySubset(t *testing.T) {
	bands, scope, err := ResponseBands(subsetOf(t))
	require.NoError(t, err)
	require.Len(t, bands, 4)

	assert.Equal(t, Scope{}, scope)
	for _, b := range bands {
		assert.Equal(t, 0, b.Count)
		assert.False(t, b.Share.Defined(), "undefined, not zero")
	}
}

func TestBandIndex_Edges(t *testing.T) {
	assert.Equal(t, 0, bandIndex(0))
	assert.Equal(t, 0, bandIndex(360))
	assert.Equal(t, 1, bandIndex(360.5))
	assert.Equal(t, 1, bandIndex(480))
	assert.Equal(t, 2, bandIndex(600))
	assert.Equal(t, 3, bandIndex(600.1))
	assert.Equal(t, 3, bandIndex(10000))
}
