package chi

import (
	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
	healthuc "github.com/faunalens/faunalens/internal/usecase/health"
	speciesuc "github.com/faunalens/faunalens/internal/usecase/species"
)

// ErrorCode is the machine-readable error identifier in error responses.
type ErrorCode string

const (
	codeBadRequest             ErrorCode = "bad_request"
	codeValidationFailed       ErrorCode = "validation_failed"
	codeDimMismatch            ErrorCode = "embedding_dim_mismatch"
	codeSpeciesNotFound        ErrorCode = "species_not_found"
	codeEcoregionNotFound      ErrorCode = "ecoregion_not_found"
	codeBackendUnavailable     ErrorCode = "backend_unavailable"
	codeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	codeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IdentifyRequest is the identification query payload. EcoCode and Lat/Lon
// are mutually exclusive ecoregion constraints.
type IdentifyRequest struct {
	Embedding []float32 `json:"embedding"`
	EcoCode   string    `json:"eco_code,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	TopK      int       `json:"top_k,omitempty"`
}

// CandidateItem is one ranked species match.
type CandidateItem struct {
	SpeciesID          string `json:"species_id"`
	CommonName         string `json:"common_name,omitempty"`
	ScientificName     string `json:"scientific_name,omitempty"`
	Class              string `json:"class,omitempty"`
	ConservationStatus string `json:"conservation_status,omitempty"`
	EcoCode            string `json:"eco_code,omitempty"`

	Distance        float64 `json:"distance"`
	ImageSimilarity float64 `json:"image_similarity"`
	TextSimilarity  float64 `json:"text_similarity"`
	Prior           float64 `json:"prior"`
	Score           float64 `json:"score"`
	Probability     float64 `json:"probability"`
	Rank            int     `json:"rank"`
}

// IdentifyResponse carries the ranked candidates, best match first.
type IdentifyResponse struct {
	Candidates []CandidateItem `json:"candidates"`
	Count      int             `json:"count"`
}

// RerankRequest recomputes scores over previously returned candidates with
// caller-chosen similarity weights. Nil weights fall back to the defaults.
type RerankRequest struct {
	Candidates  []CandidateItem `json:"candidates"`
	ImageWeight *float64        `json:"image_weight,omitempty"`
	TextWeight  *float64        `json:"text_weight,omitempty"`
}

// RerankResponse carries the reordered candidates and the weights applied.
type RerankResponse struct {
	Candidates  []CandidateItem `json:"candidates"`
	Count       int             `json:"count"`
	ImageWeight float64         `json:"image_weight"`
	TextWeight  float64         `json:"text_weight"`
}

// EcoregionResponse describes one WWF ecoregion.
type EcoregionResponse struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Biome string `json:"biome,omitempty"`
	Realm string `json:"realm,omitempty"`
}

// SpeciesItem is one species reference record in a listing.
type SpeciesItem struct {
	SpeciesID          string `json:"species_id"`
	CommonName         string `json:"common_name"`
	ScientificName     string `json:"scientific_name"`
	ConservationStatus string `json:"conservation_status,omitempty"`
}

// ClassGroupItem groups species of one taxonomic class.
type ClassGroupItem struct {
	Class   string        `json:"class"`
	Species []SpeciesItem `json:"species"`
}

// SpeciesListResponse is the species inventory of an ecoregion.
type SpeciesListResponse struct {
	EcoCode       string           `json:"eco_code"`
	EcoregionName string           `json:"ecoregion_name"`
	Total         int              `json:"total"`
	Groups        []ClassGroupItem `json:"groups"`
}

// HealthResponse reports the aggregated service health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func candidateToItem(c domid.Candidate) CandidateItem {
	return CandidateItem{
		SpeciesID:          c.SpeciesID,
		CommonName:         c.CommonName,
		ScientificName:     c.ScientificName,
		Class:              string(c.Class),
		ConservationStatus: c.ConservationStatus,
		EcoCode:            c.EcoCode,
		Distance:           c.Distance,
		ImageSimilarity:    c.ImageSimilarity,
		TextSimilarity:     c.TextSimilarity,
		Prior:              c.Prior,
		Score:              c.Score,
		Probability:        c.Probability,
		Rank:               c.Rank,
	}
}

func candidateFromItem(item CandidateItem) domid.Candidate {
	return domid.Candidate{
		SpeciesID:          item.SpeciesID,
		CommonName:         item.CommonName,
		ScientificName:     item.ScientificName,
		Class:              domspecies.Class(item.Class),
		ConservationStatus: item.ConservationStatus,
		EcoCode:            item.EcoCode,
		Distance:           item.Distance,
		ImageSimilarity:    item.ImageSimilarity,
		TextSimilarity:     item.TextSimilarity,
		Prior:              item.Prior,
		Score:              item.Score,
		Probability:        item.Probability,
		Rank:               item.Rank,
	}
}

func candidatesToItems(cs []domid.Candidate) []CandidateItem {
	items := make([]CandidateItem, len(cs))
	for i, c := range cs {
		items[i] = candidateToItem(c)
	}
	return items
}

func ecoregionToResponse(e domeco.Ecoregion) EcoregionResponse {
	return EcoregionResponse{
		Code:  e.Code(),
		Name:  e.Name(),
		Biome: e.Biome(),
		Realm: e.Realm(),
	}
}

func listingToResponse(l speciesuc.Listing) SpeciesListResponse {
	groups := make([]ClassGroupItem, len(l.Groups))
	for i, g := range l.Groups {
		members := make([]SpeciesItem, len(g.Species))
		for j := range g.Species {
			members[j] = speciesToItem(&g.Species[j])
		}
		groups[i] = ClassGroupItem{Class: string(g.Class), Species: members}
	}
	return SpeciesListResponse{
		EcoCode:       l.EcoCode,
		EcoregionName: l.EcoregionName,
		Total:         l.Total,
		Groups:        groups,
	}
}

func speciesToItem(r *domspecies.Record) SpeciesItem {
	return SpeciesItem{
		SpeciesID:          r.ID(),
		CommonName:         r.CommonName(),
		ScientificName:     r.ScientificName(),
		ConservationStatus: r.ConservationStatus(),
	}
}

func healthToResponse(rep healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(rep.Checks))
	for k, v := range rep.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(rep.Status), Checks: checks}
}

func embeddingFromRequest(raw []float32) domain.Embedding {
	return domain.Embedding(raw)
}
