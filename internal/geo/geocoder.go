package geo

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
)

// Lookup sources, also used as metric labels.
const (
	SourceStatic = "static"
	SourceCache  = "cache"
	SourceRemote = "remote"
)

// Geocoder resolves city names: static table, then cache, then remote.
// It is safe for concurrent use; remote lookups for the same name are
// collapsed so a key is written at most once.
type Geocoder struct {
	remote  Remote
	cache   CoordinateCache
	metrics *metrics.Metrics
	group   singleflight.Group
}

type Option func(*Geocoder)

// WithCache replaces the default in-memory cache.
func WithCache(c CoordinateCache) Option {
	return func(g *Geocoder) { g.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Geocoder) { g.metrics = m }
}

// NewGeocoder builds a Geocoder with its own empty MemoryCache unless
// WithCache is given.
func NewGeocoder(remote Remote, opts ...Option) *Geocoder {
	g := &Geocoder{remote: remote}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = NewMemoryCache()
	}
	return g
}

// Resolve looks up city by its literal spelling.
func (g *Geocoder) Resolve(ctx context.Context, city string) (Coordinate, error) {
	if c, ok := LookupStatic(city); ok {
		g.metrics.RecordGeocode(ctx, SourceStatic, nil)
		return c, nil
	}

	if c, ok := g.cached(ctx, city); ok {
		g.metrics.RecordGeocode(ctx, SourceCache, nil)
		return c, nil
	}

	// Detached from the caller; the remote applies its own timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(city, func() (any, error) {
		// A flight that finished just before this one may have filled the key.
		if c, ok := g.cached(flightCtx, city); ok {
			return c, nil
		}

		c, err := g.remote.Geocode(flightCtx, city)
		if err != nil {
			return Coordinate{}, err
		}

		stored, err := g.cache.PutIfAbsent(flightCtx, city, c)
		if err != nil {
			slog.WarnContext(flightCtx, "Failed to cache coordinate", "city", city, "error", err)
			return c, nil
		}
		slog.InfoContext(flightCtx, "Resolved city coordinate", "city", city, "coordinate", stored.String())
		return stored, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "geocode %s: %v", city, ctx.Err())
	case res = <-ch:
	}
	g.metrics.RecordGeocode(ctx, SourceRemote, res.Err)
	if res.Err != nil {
		return Coordinate{}, res.Err
	}
	return res.Val.(Coordinate), nil
}

func (g *Geocoder) cached(ctx context.Context, city string) (Coordinate, bool) {
	c, ok, err := g.cache.Get(ctx, city)
	if err != nil {
		slog.WarnContext(ctx, "Coordinate cache read failed", "city", city, "error", err)
		return Coordinate{}, false
	}
	return c, ok
}
