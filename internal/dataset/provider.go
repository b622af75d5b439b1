package dataset

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// EnrichFunc transforms a freshly loaded raw dataset into its analysis
// form. It must be pure: same input, same output, no side effects.
type EnrichFunc func(*Dataset) (*Dataset, error)

// Provider loads the snapshot once and memoizes the enriched dataset,
// keyed by snapshot path and modification time. Concurrent first loads
// collapse into a single read; a changed snapshot mtime invalidates the
// cache on the next call.
type Provider struct {
	path   string
	enrich EnrichFunc

	mu     sync.RWMutex
	cached *Dataset
	key    string

	group singleflight.Group
}

// NewProvider creates a Provider for the snapshot at path. enrich may be
// nil to serve the raw dataset.
func NewProvider(path string, enrich EnrichFunc) *Provider {
	return &Provider{path: path, enrich: enrich}
}

// Path returns the snapshot path this provider serves.
func (p *Provider) Path() string {
	return p.path
}

// Load returns the enriched dataset, reading the snapshot only when no
// cached copy exists for the file's current mtime.
func (p *Provider) Load(ctx context.Context) (*Dataset, error) {
	key, err := p.cacheKey()
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.cached != nil && p.key == key {
		ds := p.cached
		p.mu.RUnlock()
		return ds, nil
	}
	p.mu.RUnlock()

	v, err, shared := p.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the cache while this
		// call waited on the flight group.
		p.mu.RLock()
		if p.cached != nil && p.key == key {
			ds := p.cached
			p.mu.RUnlock()
			return ds, nil
		}
		p.mu.RUnlock()

		raw, err := ReadSnapshot(ctx, p.path)
		if err != nil {
			return nil, err
		}

		ds := raw
		if p.enrich != nil {
			ds, err = p.enrich(raw)
			if err != nil {
				return nil, err
			}
		}

		p.mu.Lock()
		p.cached = ds
		p.key = key
		p.mu.Unlock()

		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("dataset load shared with concurrent caller", zap.String("key", key))
	}
	return v.(*Dataset), nil
}

// Invalidate drops the cached dataset. The next Load re-reads the
// snapshot regardless of mtime.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.key = ""
	p.mu.Unlock()
}

// cacheKey combines path and mtime so a republished snapshot is picked up
// without a process restart.
func (p *Provider) cacheKey() (string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return "", eris.Wrapf(ErrDataLoad, "dataset: stat snapshot %s: %v", p.path, err)
	}
	return p.path + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}
