package identify

import "github.com/faunalens/faunalens/internal/domain/species"

// Candidate is a ranked species match. Ephemeral, built per request.
//
// Distance is the raw cosine distance of the closest specimen embedding
// (lower = closer). ImageSimilarity = 1 - Distance. Score is the
// prior-adjusted value the ranking is ordered by; Probability is the softmax
// of Score over the returned set.
type Candidate struct {
	SpeciesID          string
	CommonName         string
	ScientificName     string
	Class              species.Class
	ConservationStatus string
	EcoCode            string // ecoregion filter the match was scoped to, if any

	Distance        float64
	ImageSimilarity float64
	TextSimilarity  float64
	Prior           float64
	Score           float64
	Probability     float64
	Rank            int
}
