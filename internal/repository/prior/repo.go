// Package prior implements storage access for per-ecoregion species
// prevalence priors.
package prior

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
)

// DefaultPrior applies when no prior is recorded for a species, or when the
// request carries no ecoregion context at all.
const DefaultPrior = 1.0

// KeyPrefix is the hash key prefix for prior tables, one hash per ecoregion.
const KeyPrefix = domain.KeyPrefix + "prior:"

// store is the consumer interface for prior tables (ISP).
type store interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
}

// Repo implements usecase/identify.PriorReader.
type Repo struct {
	store store
}

// New creates a prior repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the prevalence prior for one species in one ecoregion.
// Unknown species or malformed values fall back to DefaultPrior.
func (r *Repo) Get(ctx context.Context, ecoCode, speciesID string) (float64, error) {
	raw, err := r.store.HGet(ctx, Key(ecoCode), speciesID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return DefaultPrior, nil
		}
		return 0, fmt.Errorf("%w: prior get %s/%s: %w", domain.ErrBackendUnavailable, ecoCode, speciesID, err)
	}
	return clampPrior(raw), nil
}

// GetAll returns the full prior table for an ecoregion. A missing table
// yields an empty map; lookups then fall back to DefaultPrior.
func (r *Repo) GetAll(ctx context.Context, ecoCode string) (map[string]float64, error) {
	m, err := r.store.HGetAll(ctx, Key(ecoCode))
	if err != nil {
		return nil, fmt.Errorf("%w: prior table %s: %w", domain.ErrBackendUnavailable, ecoCode, err)
	}

	priors := make(map[string]float64, len(m))
	for speciesID, raw := range m {
		priors[speciesID] = clampPrior(raw)
	}
	return priors, nil
}

// SetAll writes a full prior table for an ecoregion. Used by the seeder.
func (r *Repo) SetAll(ctx context.Context, ecoCode string, priors map[string]float64) error {
	if len(priors) == 0 {
		return nil
	}

	fields := make(map[string]string, len(priors))
	for speciesID, p := range priors {
		fields[speciesID] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	if err := r.store.HSet(ctx, Key(ecoCode), fields); err != nil {
		return fmt.Errorf("prior set %s: %w", ecoCode, err)
	}
	return nil
}

// Key returns the prior hash key for an ecoregion code.
func Key(ecoCode string) string {
	return KeyPrefix + ecoCode
}

// clampPrior parses a stored prior and forces it into (0, 1]. Anything
// unparseable or out of range degrades to the neutral default rather than
// poisoning the ranking.
func clampPrior(raw string) float64 {
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p) || p <= 0 || p > 1 {
		return DefaultPrior
	}
	return p
}
