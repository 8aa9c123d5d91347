package identify

import (
	"sort"

	domid "github.com/faunalens/faunalens/internal/domain/identify"
)

// Rerank recomputes scores and probabilities over caller-supplied candidates
// with explicit image/text weights, then reorders by the blended score.
// Priors are not reapplied; the blend operates on the reported similarities.
func (s *Service) Rerank(candidates []domid.Candidate, w domid.Weights) []domid.Candidate {
	out := make([]domid.Candidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		out[i].Score = w.Combine(out[i].ImageSimilarity, out[i].TextSimilarity)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SpeciesID < out[j].SpeciesID
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	applyProbabilities(out)
	return out
}
