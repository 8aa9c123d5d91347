// Package identify implements the embedding-ranked species resolver: an
// over-fetched KNN pool deduplicated per species and reranked with
// prevalence priors.
package identify

import (
	"context"
	"fmt"

	"github.com/faunalens/faunalens/internal/domain"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	"github.com/faunalens/faunalens/internal/metrics"
)

// Config bounds the resolver's result size and backend cost.
type Config struct {
	VectorDim      int
	DefaultTopK    int
	MaxTopK        int
	PoolMultiplier int
	MaxPoolSize    int
}

// Service handles species identification requests.
type Service struct {
	cfg      Config
	searcher VectorSearcher
	species  SpeciesReader
	priors   PriorReader
	locator  EcoregionLocator
}

// New creates an identification service.
func New(cfg Config, searcher VectorSearcher, species SpeciesReader, priors PriorReader, locator EcoregionLocator) *Service {
	return &Service{cfg: cfg, searcher: searcher, species: species, priors: priors, locator: locator}
}

// Identify resolves a query embedding into ranked candidate species.
//
// Stages run sequentially over in-memory sequences so the scoring policy is
// testable without the storage backend: resolve the ecoregion context, fetch
// the raw neighbor pool, dedupe per species keeping the closest match, apply
// prevalence priors, order, cut to topK, attach records and probabilities.
func (s *Service) Identify(ctx context.Context, req *domid.Request) ([]domid.Candidate, error) {
	if err := req.Embedding().Validate(s.cfg.VectorDim); err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "invalid").Inc()
		return nil, err
	}

	ecoCode, err := s.resolveEcoCode(ctx, req)
	if err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "error").Inc()
		return nil, err
	}

	var allowlist []string
	if ecoCode != "" {
		allowlist, err = s.species.SpeciesIDsByEcoregion(ctx, ecoCode)
		if err != nil {
			metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "error").Inc()
			return nil, fmt.Errorf("species allowlist for %s: %w", ecoCode, err)
		}
		// An ecoregion with no documented species is a valid empty result,
		// decided before any vector query.
		if len(allowlist) == 0 {
			metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "ok").Inc()
			return []domid.Candidate{}, nil
		}
	}

	topK := req.EffectiveTopK(s.cfg.DefaultTopK, s.cfg.MaxTopK)
	pool := domid.PoolSize(topK, s.cfg.PoolMultiplier, s.cfg.MaxPoolSize)
	neighbors, err := s.searcher.SearchNearest(ctx, req.Embedding(), allowlist, pool)
	if err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "error").Inc()
		return nil, fmt.Errorf("neighbor pool: %w", err)
	}
	metrics.IdentifyPoolSize.Observe(float64(len(neighbors)))

	priors := map[string]float64{}
	if ecoCode != "" {
		priors, err = s.priors.GetAll(ctx, ecoCode)
		if err != nil {
			metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "error").Inc()
			return nil, fmt.Errorf("prior table for %s: %w", ecoCode, err)
		}
	}

	ranked := rankNeighbors(neighbors, priors, topK)

	candidates, err := s.attachRecords(ctx, ranked, req.Embedding(), ecoCode)
	if err != nil {
		metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "error").Inc()
		return nil, err
	}

	applyProbabilities(candidates)

	metrics.IdentifyRequestsTotal.WithLabelValues(filterLabel(req), "ok").Inc()
	metrics.IdentifyCandidatesReturned.Observe(float64(len(candidates)))
	return candidates, nil
}

// resolveEcoCode returns the effective ecoregion filter: the explicit code,
// or the region containing the request coordinates.
func (s *Service) resolveEcoCode(ctx context.Context, req *domid.Request) (string, error) {
	if req.EcoCode() != "" {
		return req.EcoCode(), nil
	}
	p := req.Point()
	if p == nil {
		return "", nil
	}
	eco, err := s.locator.LocateByPoint(ctx, p.Lat, p.Lon)
	if err != nil {
		return "", fmt.Errorf("locate ecoregion: %w", err)
	}
	return eco.Code(), nil
}

// attachRecords loads species reference data for the ranked candidates and
// computes the optional text similarity. Species missing from the reference
// store (stale index entries) are dropped.
func (s *Service) attachRecords(
	ctx context.Context, ranked []domid.Candidate, query domain.Embedding, ecoCode string,
) ([]domid.Candidate, error) {
	if len(ranked) == 0 {
		return []domid.Candidate{}, nil
	}

	ids := make([]string, len(ranked))
	for i := range ranked {
		ids[i] = ranked[i].SpeciesID
	}

	records, err := s.species.GetMulti(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("species records: %w", err)
	}

	byID := make(map[string]int, len(records))
	for i := range records {
		byID[records[i].ID()] = i
	}

	out := make([]domid.Candidate, 0, len(ranked))
	for _, c := range ranked {
		idx, ok := byID[c.SpeciesID]
		if !ok {
			continue
		}
		rec := &records[idx]
		c.CommonName = rec.CommonName()
		c.ScientificName = rec.ScientificName()
		c.Class = rec.Class()
		c.ConservationStatus = rec.ConservationStatus()
		c.EcoCode = ecoCode
		if emb := rec.TextEmbedding(); len(emb) == len(query) {
			c.TextSimilarity = query.Cosine(emb)
		}
		c.Rank = len(out) + 1
		out = append(out, c)
	}
	return out, nil
}

func filterLabel(req *domid.Request) string {
	switch {
	case req.EcoCode() != "":
		return "ecoregion"
	case req.Point() != nil:
		return "point"
	default:
		return "none"
	}
}
