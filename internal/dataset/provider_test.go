package dataset

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderLoad_CachesByMtime(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,,\n")

	var enrichCalls atomic.Int32
	p := NewProvider(path, func(raw *Dataset) (*Dataset, error) {
		enrichCalls.Add(1)
		out := *raw
		out.Enriched = true
		return &out, nil
	})

	ds1, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ds1.Enriched)

	ds2, err := p.Load(context.Background())
	require.NoError(t, err)

	// Identical object, no re-read, no re-enrich.
	assert.Same(t, ds1, ds2)
	assert.Equal(t, int32(1), enrichCalls.Load())
}

func TestProviderLoad_ReloadsOnMtimeChange(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,,\n")

	p := NewProvider(path, nil)
	ds1, err := p.Load(context.Background())
	require.NoError(t, err)

	// Republish with a different mtime.
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	ds2, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, ds1, ds2)
}

func TestProviderLoad_Invalidate(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,,\n")

	p := NewProvider(path, nil)
	ds1, err := p.Load(context.Background())
	require.NoError(t, err)

	p.Invalidate()

	ds2, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, ds1, ds2)
}

func TestProviderLoad_MissingSnapshot(t *testing.T) {
	p := NewProvider("/nonexistent/incidents.csv.gz", nil)
	_, err := p.Load(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
}

func TestProviderLoad_EnrichErrorPropagates(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,NOWHERE,310,80,230,,\n")

	boom := eris.New("borough key unresolved")
	p := NewProvider(path, func(*Dataset) (*Dataset, error) {
		return nil, boom
	})

	_, err := p.Load(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))

	// A failed enrich must not poison the cache with a nil dataset.
	_, err = p.Load(context.Background())
	require.Error(t, err)
}

func TestProviderLoad_ConcurrentSingleWinner(t *testing.T) {
	path := writeRawSnapshot(t, snapshotHeader+
		"I-1,2024-03-15 14:30:00,Fire,CAMDEN,310,80,230,,\n")

	var enrichCalls atomic.Int32
	p := NewProvider(path, func(raw *Dataset) (*Dataset, error) {
		enrichCalls.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		out := *raw
		out.Enriched = true
		return &out, nil
	})

	const callers = 16
	results := make([]*Dataset, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := range callers {
		go func(i int) {
			defer wg.Done()
			ds, err := p.Load(context.Background())
			assert.NoError(t, err)
			results[i] = ds
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), enrichCalls.Load())
}
