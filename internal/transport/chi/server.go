// Package chi implements the HTTP transport for the faunalens API.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/faunalens/faunalens/internal/domain"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	ecoregionuc "github.com/faunalens/faunalens/internal/usecase/ecoregion"
	healthuc "github.com/faunalens/faunalens/internal/usecase/health"
	identifyuc "github.com/faunalens/faunalens/internal/usecase/identify"
	speciesuc "github.com/faunalens/faunalens/internal/usecase/species"
)

// maxRerankCandidates bounds a single rerank request.
const maxRerankCandidates = 100

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the HTTP handlers.
type Server struct {
	identify      *identifyuc.Service
	ecoregions    *ecoregionuc.Service
	species       *speciesuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	identify *identifyuc.Service,
	ecoregions *ecoregionuc.Service,
	species *speciesuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		identify:   identify,
		ecoregions: ecoregions,
		species:    species,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		dimMismatchHandler,
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEcoregionNotFound, http.StatusNotFound, codeEcoregionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeSpeciesNotFound),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Routes mounts all API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/identify", s.Identify)
	r.Post("/v1/identify/rerank", s.RerankWithWeights)
	r.Get("/v1/ecoregions/by-coordinates", s.EcoregionByCoordinates)
	r.Get("/v1/ecoregions/{ecoCode}", s.GetEcoregion)
	r.Get("/v1/ecoregions/{ecoCode}/species", s.SpeciesByEcoregion)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Identify handles POST /v1/identify.
func (s *Server) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	point, err := pointFromRequest(req.Lat, req.Lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	query, err := domid.New(embeddingFromRequest(req.Embedding), req.EcoCode, point, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	candidates, err := s.identify.Identify(r.Context(), &query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IdentifyResponse{
		Candidates: candidatesToItems(candidates),
		Count:      len(candidates),
	})
}

// RerankWithWeights handles POST /v1/identify/rerank.
func (s *Server) RerankWithWeights(w http.ResponseWriter, r *http.Request) {
	var req RerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "candidates are required")
		return
	}
	if len(req.Candidates) > maxRerankCandidates {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("too many candidates: %d exceeds %d", len(req.Candidates), maxRerankCandidates))
		return
	}

	imageWeight := domid.DefaultImageWeight
	if req.ImageWeight != nil {
		imageWeight = *req.ImageWeight
	}
	textWeight := domid.DefaultTextWeight
	if req.TextWeight != nil {
		textWeight = *req.TextWeight
	}
	weights, err := domid.NewWeights(imageWeight, textWeight)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	candidates := make([]domid.Candidate, len(req.Candidates))
	for i, item := range req.Candidates {
		if item.SpeciesID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				fmt.Sprintf("candidate %d: species_id is required", i))
			return
		}
		candidates[i] = candidateFromItem(item)
	}

	reranked := s.identify.Rerank(candidates, weights)

	writeJSON(w, http.StatusOK, RerankResponse{
		Candidates:  candidatesToItems(reranked),
		Count:       len(reranked),
		ImageWeight: weights.Image(),
		TextWeight:  weights.Text(),
	})
}

// EcoregionByCoordinates handles GET /v1/ecoregions/by-coordinates?lat=&lon=.
func (s *Server) EcoregionByCoordinates(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	lon, err := parseFloatParam(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	eco, err := s.ecoregions.ByCoordinates(r.Context(), lat, lon)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ecoregionToResponse(eco))
}

// GetEcoregion handles GET /v1/ecoregions/{ecoCode}.
func (s *Server) GetEcoregion(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "ecoCode")

	eco, err := s.ecoregions.ByCode(r.Context(), code)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ecoregionToResponse(eco))
}

// SpeciesByEcoregion handles GET /v1/ecoregions/{ecoCode}/species.
func (s *Server) SpeciesByEcoregion(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "ecoCode")

	listing, err := s.species.ByEcoregion(r.Context(), code)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingToResponse(listing))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthToResponse(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// pointFromRequest builds the optional coordinate pair. Both or neither must
// be present.
func pointFromRequest(lat, lon *float64) (*domid.Point, error) {
	if lat == nil && lon == nil {
		return nil, nil
	}
	if lat == nil || lon == nil {
		return nil, errors.New("lat and lon must be provided together")
	}
	return &domid.Point{Lat: *lat, Lon: *lon}, nil
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("query parameter %q is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be a number", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrDimMismatch,
		domain.ErrEcoregionNotFound,
		domain.ErrNotFound,
		domain.ErrBackendUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dimMismatchHandler handles ErrDimMismatch, surfacing the observed and
// expected sizes when available.
func dimMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrDimMismatch) {
		return false
	}
	var dme *domain.DimMismatchError
	if errors.As(err, &dme) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":         codeDimMismatch,
			"message":      msg,
			"got":          dme.Got,
			"expected_dim": dme.Want,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeDimMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
