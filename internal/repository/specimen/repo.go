// Package specimen implements the vector-index lookup over reference
// specimen embeddings.
package specimen

import (
	"context"
	"fmt"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
	"github.com/faunalens/faunalens/internal/domain/identify"
)

const (
	fieldSpeciesID = "species_id"
	fieldEcoCodes  = "eco_codes"
	fieldEmbedding = "embedding"
)

// IndexName is the FT index over specimen hashes.
const IndexName = domain.KeyPrefix + "specimen:idx"

// KeyPrefix is the hash key prefix for specimen records.
const KeyPrefix = domain.KeyPrefix + "specimen:"

// store is the consumer interface for specimen search and ingest (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Entry is one reference specimen embedding for ingest.
type Entry struct {
	ID        string
	SpeciesID string
	EcoCodes  []string
	Embedding domain.Embedding
}

// Repo implements usecase/identify.VectorSearcher.
type Repo struct {
	store store
}

// New creates a specimen repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchNearest returns up to k specimen neighbors ordered by ascending
// cosine distance. A non-empty allowlist restricts hits to specimens of
// those species; an empty allowlist searches the whole index.
func (r *Repo) SearchNearest(
	ctx context.Context, embedding domain.Embedding, speciesAllowlist []string, k int,
) ([]identify.Neighbor, error) {
	q := &db.KNNQuery{
		IndexName:    IndexName,
		Vector:       embedding,
		K:            k,
		ReturnFields: []string{fieldSpeciesID},
		RawScores:    true,
	}
	if len(speciesAllowlist) > 0 {
		q.Filters = []db.TagFilter{{Field: fieldSpeciesID, Values: speciesAllowlist}}
	}

	result, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: specimen knn: %w", domain.ErrBackendUnavailable, err)
	}

	neighbors := make([]identify.Neighbor, 0, len(result.Entries))
	for _, entry := range result.Entries {
		id := entry.Fields[fieldSpeciesID]
		if id == "" {
			continue
		}
		neighbors = append(neighbors, identify.Neighbor{
			SpeciesID: id,
			Distance:  entry.Score,
		})
	}
	return neighbors, nil
}

// UpsertBatch writes specimen records in a single pipelined call. Used by
// the seeder, never by the API path.
func (r *Repo) UpsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		items[i] = db.HashSetItem{
			Key:    Key(e.ID),
			Fields: HashFields(e.SpeciesID, e.EcoCodes, e.Embedding),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("%w: specimen batch: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Index returns the FT index definition for specimen hashes.
func Index(dim, hnswM, hnswEFConstruct int) *db.IndexDefinition {
	return db.NewIndex(IndexName).
		Prefix(KeyPrefix).
		Tag(fieldSpeciesID).
		TagWithOpts(fieldEcoCodes, ",", true).
		VectorHNSW(fieldEmbedding, dim, db.DistanceCosine, hnswM, hnswEFConstruct).
		MustBuild()
}

// Key returns the hash key for a specimen id.
func Key(id string) string {
	return KeyPrefix + id
}
