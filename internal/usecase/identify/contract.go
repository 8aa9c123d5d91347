package identify

import (
	"context"

	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

// VectorSearcher queries the specimen vector index. A non-empty allowlist
// restricts hits to those species ids.
type VectorSearcher interface {
	SearchNearest(
		ctx context.Context, embedding domain.Embedding, speciesAllowlist []string, k int,
	) ([]domid.Neighbor, error)
}

// SpeciesReader reads species reference records.
type SpeciesReader interface {
	SpeciesIDsByEcoregion(ctx context.Context, ecoCode string) ([]string, error)
	GetMulti(ctx context.Context, ids []string) ([]domspecies.Record, error)
}

// PriorReader reads per-ecoregion prevalence priors.
type PriorReader interface {
	GetAll(ctx context.Context, ecoCode string) (map[string]float64, error)
}

// EcoregionLocator resolves coordinates to the containing ecoregion.
type EcoregionLocator interface {
	LocateByPoint(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error)
}
