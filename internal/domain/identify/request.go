// Package identify holds the request and candidate types for species
// identification by image embedding.
package identify

import (
	"fmt"

	"github.com/faunalens/faunalens/internal/domain"
	"github.com/faunalens/faunalens/internal/domain/ecoregion"
	"github.com/faunalens/faunalens/internal/domain/geo"
)

// Candidate retrieval limits. TopK is capped to bound backend cost; the raw
// KNN pool is over-fetched to absorb per-species deduplication losses.
const (
	DefaultTopK           = 5
	MaxTopK               = 50
	DefaultPoolMultiplier = 5
	MaxPoolSize           = 500
)

// Point is a lat/lon coordinate used to resolve the ecoregion filter.
type Point struct {
	Lat float64
	Lon float64
}

// Request is a validated identification query.
type Request struct {
	embedding domain.Embedding
	ecoCode   string
	point     *Point
	topK      int
}

// New validates identification parameters. topK is kept as requested
// (0 = unset); the resolver applies its configured default and cap. The
// embedding dimensionality is also checked later by the resolver, which
// knows the index size.
func New(embedding domain.Embedding, ecoCode string, point *Point, topK int) (Request, error) {
	if len(embedding) == 0 {
		return Request{}, fmt.Errorf("%w: embedding is required", domain.ErrValidation)
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must be non-negative", domain.ErrValidation)
	}
	if ecoCode != "" {
		if err := ecoregion.ValidateCode(ecoCode); err != nil {
			return Request{}, err
		}
	}
	if point != nil {
		if ecoCode != "" {
			return Request{}, fmt.Errorf("%w: provide either eco_code or coordinates, not both", domain.ErrValidation)
		}
		if !geo.ValidateCoordinates(point.Lat, point.Lon) {
			return Request{}, fmt.Errorf("%w: coordinates (%f, %f) out of range", domain.ErrValidation, point.Lat, point.Lon)
		}
		p := *point
		point = &p
	}
	return Request{embedding: embedding, ecoCode: ecoCode, point: point, topK: topK}, nil
}

// Embedding returns the query image embedding.
func (r *Request) Embedding() domain.Embedding { return r.embedding }

// EcoCode returns the explicit ecoregion filter, empty when none.
func (r *Request) EcoCode() string { return r.ecoCode }

// Point returns the coordinates to resolve into an ecoregion, nil when none.
func (r *Request) Point() *Point { return r.point }

// TopK returns the requested number of candidates, 0 when unset.
func (r *Request) TopK() int { return r.topK }

// EffectiveTopK resolves the requested topK against the configured default
// and cap. Non-positive config values fall back to the package defaults.
func (r *Request) EffectiveTopK(defaultTopK, maxTopK int) int {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	k := r.topK
	if k <= 0 {
		k = defaultTopK
	}
	if k > maxTopK {
		k = maxTopK
	}
	return k
}

// PoolSize returns the raw KNN pool size for an effective topK.
func PoolSize(topK, multiplier, maxPool int) int {
	if multiplier <= 0 {
		multiplier = DefaultPoolMultiplier
	}
	if maxPool <= 0 || maxPool > MaxPoolSize {
		maxPool = MaxPoolSize
	}
	pool := topK * multiplier
	if pool > maxPool {
		pool = maxPool
	}
	if pool < topK {
		pool = topK
	}
	return pool
}
