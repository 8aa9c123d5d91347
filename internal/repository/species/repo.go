// Package species implements storage access for species reference records.
package species

import (
	"context"
	"fmt"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

// IndexName is the FT index over species hashes.
const IndexName = domain.KeyPrefix + "species:idx"

// KeyPrefix is the hash key prefix for species records.
const KeyPrefix = domain.KeyPrefix + "species:"

// store is the consumer interface for species records (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Exists(ctx context.Context, key string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the species readers used by the identify and species
// usecases.
type Repo struct {
	store store
}

// New creates a species repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a species record by id.
func (r *Repo) Get(ctx context.Context, id string) (domspecies.Record, error) {
	m, err := r.store.HGetAll(ctx, Key(id))
	if err != nil {
		return domspecies.Record{}, fmt.Errorf("%w: species get %s: %w", domain.ErrBackendUnavailable, id, err)
	}
	if len(m) == 0 {
		return domspecies.Record{}, fmt.Errorf("%w: species %s", domain.ErrNotFound, id)
	}
	return parseHashFields(id, m), nil
}

// GetMulti returns records for the given ids in order. Missing ids are
// silently dropped; a stale index entry must not fail the whole lookup.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]domspecies.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: species multi-get: %w", domain.ErrBackendUnavailable, err)
	}

	records := make([]domspecies.Record, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		records = append(records, parseHashFields(ids[i], m))
	}
	return records, nil
}

// ListByEcoregion returns species documented in the given ecoregion, plus the
// total count for pagination.
func (r *Repo) ListByEcoregion(ctx context.Context, ecoCode string, offset, limit int) (
	[]domspecies.Record, int, error,
) {
	query := fmt.Sprintf("@%s:{%s}", fieldEcoCodes, ecoCode)
	result, err := r.store.SearchList(ctx, IndexName, query, offset, limit, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: species list %s: %w", domain.ErrBackendUnavailable, ecoCode, err)
	}

	records := make([]domspecies.Record, 0, len(result.Entries))
	for _, entry := range result.Entries {
		id := extractID(entry.Key)
		records = append(records, parseHashFields(id, entry.Fields))
	}
	return records, result.Total, nil
}

// SpeciesIDsByEcoregion returns the ids of every species documented in the
// given ecoregion. Pages through the index; ecoregions hold at most a few
// hundred species.
func (r *Repo) SpeciesIDsByEcoregion(ctx context.Context, ecoCode string) ([]string, error) {
	const pageSize = 500

	query := fmt.Sprintf("@%s:{%s}", fieldEcoCodes, ecoCode)
	var ids []string
	for offset := 0; ; offset += pageSize {
		result, err := r.store.SearchList(ctx, IndexName, query, offset, pageSize, []string{fieldClass})
		if err != nil {
			return nil, fmt.Errorf("%w: species ids %s: %w", domain.ErrBackendUnavailable, ecoCode, err)
		}
		for _, entry := range result.Entries {
			ids = append(ids, extractID(entry.Key))
		}
		if len(result.Entries) == 0 || len(ids) >= result.Total {
			break
		}
	}
	return ids, nil
}

// Exists reports whether a species record is already stored. Used by the
// seeder to skip re-embedding species present from a previous run.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, Key(id))
	if err != nil {
		return false, fmt.Errorf("%w: species exists %s: %w", domain.ErrBackendUnavailable, id, err)
	}
	return ok, nil
}

// Count returns the total number of species records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("%w: species count: %w", domain.ErrBackendUnavailable, err)
	}
	return n, nil
}

// UpsertBatch writes species records in a single pipelined call. Used by the
// seeder.
func (r *Repo) UpsertBatch(ctx context.Context, records []domspecies.Record) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i := range records {
		items[i] = db.HashSetItem{
			Key:    Key(records[i].ID()),
			Fields: buildHashFields(&records[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("species upsert batch: %w", err)
	}
	return nil
}

// Index returns the FT index definition for species hashes.
func Index() *db.IndexDefinition {
	return db.NewIndex(IndexName).
		Prefix(KeyPrefix).
		Tag(fieldClass).
		TagWithOpts(fieldEcoCodes, ",", true).
		MustBuild()
}

// Key returns the hash key for a species id.
func Key(id string) string {
	return KeyPrefix + id
}

func extractID(key string) string {
	if len(key) > len(KeyPrefix) && key[:len(KeyPrefix)] == KeyPrefix {
		return key[len(KeyPrefix):]
	}
	return key
}
