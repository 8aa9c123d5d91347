// Package ecoregion implements storage access for WWF ecoregion reference
// data, including nearest-ecoregion lookup by coordinates.
package ecoregion

import (
	"context"
	"fmt"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	"github.com/faunalens/faunalens/internal/domain/geo"
)

// candidateCount is how many nearest centroids are fetched before the exact
// point-in-polygon check. Centroids of large or concave ecoregions can be
// closer to a point that lies inside a neighboring region.
const candidateCount = 8

// IndexName is the FT index over ecoregion hashes.
const IndexName = domain.KeyPrefix + "eco:idx"

// KeyPrefix is the hash key prefix for ecoregion records.
const KeyPrefix = domain.KeyPrefix + "eco:"

// store is the consumer interface for ecoregion records (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the ecoregion readers used by the identify and ecoregion
// usecases.
type Repo struct {
	store store
}

// New creates an ecoregion repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// GetByCode returns an ecoregion by its WWF code.
func (r *Repo) GetByCode(ctx context.Context, code string) (domeco.Ecoregion, error) {
	m, err := r.store.HGetAll(ctx, Key(code))
	if err != nil {
		return domeco.Ecoregion{}, fmt.Errorf("%w: ecoregion get %s: %w", domain.ErrBackendUnavailable, code, err)
	}
	if len(m) == 0 {
		return domeco.Ecoregion{}, fmt.Errorf("%w: %s", domain.ErrEcoregionNotFound, code)
	}
	return parseHashFields(code, m)
}

// LocateByPoint resolves the ecoregion containing the given coordinates.
// Candidate regions come from an L2 KNN over unit-sphere centroid vectors;
// the exact boundary test picks the containing one.
func (r *Repo) LocateByPoint(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: IndexName,
		Vector:    geo.ToVector(lat, lon),
		K:         candidateCount,
		RawScores: true,
	})
	if err != nil {
		return domeco.Ecoregion{}, fmt.Errorf("%w: ecoregion knn: %w", domain.ErrBackendUnavailable, err)
	}

	for _, entry := range result.Entries {
		code := extractCode(entry.Key)
		eco, err := parseHashFields(code, entry.Fields)
		if err != nil {
			continue
		}
		if eco.Contains(lat, lon) {
			return eco, nil
		}
	}

	return domeco.Ecoregion{}, fmt.Errorf("%w: no ecoregion contains %.4f,%.4f",
		domain.ErrEcoregionNotFound, lat, lon)
}

// UpsertBatch writes ecoregion records in a single pipelined call. Used by
// the seeder.
func (r *Repo) UpsertBatch(ctx context.Context, regions []domeco.Ecoregion) error {
	if len(regions) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(regions))
	for i := range regions {
		fields, err := buildHashFields(&regions[i])
		if err != nil {
			return fmt.Errorf("ecoregion %s: %w", regions[i].Code(), err)
		}
		items = append(items, db.HashSetItem{Key: Key(regions[i].Code()), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("ecoregion upsert batch: %w", err)
	}
	return nil
}

// Index returns the FT index definition for ecoregion hashes.
func Index() *db.IndexDefinition {
	return db.NewIndex(IndexName).
		Prefix(KeyPrefix).
		Tag(fieldRealm).
		VectorFlat(fieldCentroid, geo.CentroidVectorDim, db.DistanceL2, 0).
		MustBuild()
}

// Key returns the hash key for an ecoregion code.
func Key(code string) string {
	return KeyPrefix + code
}

func extractCode(key string) string {
	if len(key) > len(KeyPrefix) && key[:len(KeyPrefix)] == KeyPrefix {
		return key[len(KeyPrefix):]
	}
	return key
}
