package identify

import (
	"math"
	"sort"

	domid "github.com/faunalens/faunalens/internal/domain/identify"
)

// Score convention: the index returns cosine distance (lower = closer),
// similarity = 1 - distance, adjusted score = similarity * prior with
// prior in (0,1] defaulting to 1. For equal priors the adjusted score is
// strictly monotone in similarity, so a closer raw match never ranks below
// a farther one.

// rankNeighbors collapses the raw pool to one entry per species (closest
// match wins), applies priors, and returns at most topK candidates ordered
// by adjusted score descending with species-id ties ascending.
func rankNeighbors(neighbors []domid.Neighbor, priors map[string]float64, topK int) []domid.Candidate {
	best := make(map[string]float64, len(neighbors))
	for _, n := range neighbors {
		if d, seen := best[n.SpeciesID]; !seen || n.Distance < d {
			best[n.SpeciesID] = n.Distance
		}
	}

	candidates := make([]domid.Candidate, 0, len(best))
	for speciesID, distance := range best {
		prior, ok := priors[speciesID]
		if !ok {
			prior = 1.0
		}
		similarity := 1 - distance
		candidates = append(candidates, domid.Candidate{
			SpeciesID:       speciesID,
			Distance:        distance,
			ImageSimilarity: similarity,
			Prior:           prior,
			Score:           similarity * prior,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SpeciesID < candidates[j].SpeciesID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// applyProbabilities sets softmax probabilities over the candidates' scores
// in place. Max-shifted for numerical stability.
func applyProbabilities(candidates []domid.Candidate) {
	if len(candidates) == 0 {
		return
	}

	maxScore := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}

	var sum float64
	exps := make([]float64, len(candidates))
	for i, c := range candidates {
		exps[i] = math.Exp(c.Score - maxScore)
		sum += exps[i]
	}
	for i := range candidates {
		candidates[i].Probability = exps[i] / sum
	}
}
