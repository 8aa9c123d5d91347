package chi

import (
	"context"
	"net/http"
	"net/http/httptest"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
	ecoregionuc "github.com/faunalens/faunalens/internal/usecase/ecoregion"
	healthuc "github.com/faunalens/faunalens/internal/usecase/health"
	identifyuc "github.com/faunalens/faunalens/internal/usecase/identify"
	speciesuc "github.com/faunalens/faunalens/internal/usecase/species"
)

const testDim = 4

type mockSearcher struct {
	fn func(ctx context.Context, embedding domain.Embedding, allowlist []string, k int) ([]domid.Neighbor, error)
}

func (m *mockSearcher) SearchNearest(
	ctx context.Context, embedding domain.Embedding, allowlist []string, k int,
) ([]domid.Neighbor, error) {
	if m.fn != nil {
		return m.fn(ctx, embedding, allowlist, k)
	}
	return nil, nil
}

type mockSpecies struct {
	idsFn      func(ctx context.Context, ecoCode string) ([]string, error)
	getMultiFn func(ctx context.Context, ids []string) ([]domspecies.Record, error)
	listFn     func(ctx context.Context, ecoCode string, offset, limit int) ([]domspecies.Record, int, error)
}

func (m *mockSpecies) SpeciesIDsByEcoregion(ctx context.Context, ecoCode string) ([]string, error) {
	if m.idsFn != nil {
		return m.idsFn(ctx, ecoCode)
	}
	return nil, nil
}

func (m *mockSpecies) GetMulti(ctx context.Context, ids []string) ([]domspecies.Record, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, ids)
	}
	records := make([]domspecies.Record, len(ids))
	for i, id := range ids {
		records[i] = domspecies.Reconstruct(id, "Common "+id, "Binomial "+id,
			domspecies.ClassMammal, "LC", nil, nil)
	}
	return records, nil
}

func (m *mockSpecies) ListByEcoregion(
	ctx context.Context, ecoCode string, offset, limit int,
) ([]domspecies.Record, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ecoCode, offset, limit)
	}
	return nil, 0, nil
}

type mockPriors struct {
	fn func(ctx context.Context, ecoCode string) (map[string]float64, error)
}

func (m *mockPriors) GetAll(ctx context.Context, ecoCode string) (map[string]float64, error) {
	if m.fn != nil {
		return m.fn(ctx, ecoCode)
	}
	return map[string]float64{}, nil
}

type mockRegions struct {
	locateFn func(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error)
	getFn    func(ctx context.Context, code string) (domeco.Ecoregion, error)
}

func (m *mockRegions) LocateByPoint(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error) {
	if m.locateFn != nil {
		return m.locateFn(ctx, lat, lon)
	}
	return domeco.Ecoregion{}, domain.ErrEcoregionNotFound
}

func (m *mockRegions) GetByCode(ctx context.Context, code string) (domeco.Ecoregion, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return domeco.Ecoregion{}, domain.ErrEcoregionNotFound
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// testDeps bundles the mock backends behind a test server.
type testDeps struct {
	searcher *mockSearcher
	species  *mockSpecies
	priors   *mockPriors
	regions  *mockRegions
	pinger   *mockPinger
}

func newTestDeps() *testDeps {
	return &testDeps{
		searcher: &mockSearcher{},
		species:  &mockSpecies{},
		priors:   &mockPriors{},
		regions:  &mockRegions{},
		pinger:   &mockPinger{},
	}
}

func newTestServer(deps *testDeps) http.Handler {
	identifySvc := identifyuc.New(
		identifyuc.Config{VectorDim: testDim, DefaultTopK: 5, MaxTopK: 50, PoolMultiplier: 5, MaxPoolSize: 500},
		deps.searcher, deps.species, deps.priors, deps.regions,
	)
	ecoSvc := ecoregionuc.New(deps.regions, deps.regions)
	speciesSvc := speciesuc.New(deps.species, deps.regions)
	healthSvc := healthuc.New(deps.pinger, nil)

	s := NewServer(identifySvc, ecoSvc, speciesSvc, healthSvc, zap.NewNop())

	r := gochi.NewRouter()
	s.Routes(r)
	return r
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
