package identify

import (
	"context"
	"testing"

	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domid "github.com/faunalens/faunalens/internal/domain/identify"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

const testDim = 4

// mockSearcher implements VectorSearcher for tests.
type mockSearcher struct {
	fn    func(ctx context.Context, embedding domain.Embedding, allowlist []string, k int) ([]domid.Neighbor, error)
	calls int
}

func (m *mockSearcher) SearchNearest(
	ctx context.Context, embedding domain.Embedding, allowlist []string, k int,
) ([]domid.Neighbor, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx, embedding, allowlist, k)
	}
	return nil, nil
}

// mockSpecies implements SpeciesReader for tests.
type mockSpecies struct {
	idsFn      func(ctx context.Context, ecoCode string) ([]string, error)
	getMultiFn func(ctx context.Context, ids []string) ([]domspecies.Record, error)
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
	// Default: synthesize a record per id so pipeline tests don't have to
	// stub reference data.
	records := make([]domspecies.Record, len(ids))
	for i, id := range ids {
		records[i] = domspecies.Reconstruct(id, "Common "+id, "Binomial "+id,
			domspecies.ClassMammal, "LC", nil, nil)
	}
	return records, nil
}

// mockPriors implements PriorReader for tests.
type mockPriors struct {
	fn func(ctx context.Context, ecoCode string) (map[string]float64, error)
}

func (m *mockPriors) GetAll(ctx context.Context, ecoCode string) (map[string]float64, error) {
	if m.fn != nil {
		return m.fn(ctx, ecoCode)
	}
	return map[string]float64{}, nil
}

// mockLocator implements EcoregionLocator for tests.
type mockLocator struct {
	fn func(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error)
}

func (m *mockLocator) LocateByPoint(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error) {
	if m.fn != nil {
		return m.fn(ctx, lat, lon)
	}
	return domeco.Ecoregion{}, domain.ErrEcoregionNotFound
}

type testDeps struct {
	searcher *mockSearcher
	species  *mockSpecies
	priors   *mockPriors
	locator  *mockLocator
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		searcher: &mockSearcher{},
		species:  &mockSpecies{},
		priors:   &mockPriors{},
		locator:  &mockLocator{},
	}
	svc := New(Config{VectorDim: testDim, DefaultTopK: 5, MaxTopK: 50, PoolMultiplier: 5, MaxPoolSize: 500},
		deps.searcher, deps.species, deps.priors, deps.locator)
	return svc, deps
}

func testEmbedding() domain.Embedding {
	return domain.Embedding{0.1, 0.2, 0.3, 0.4}
}

func mustRequest(t *testing.T, ecoCode string, point *domid.Point, topK int) *domid.Request {
	t.Helper()
	req, err := domid.New(testEmbedding(), ecoCode, point, topK)
	if err != nil {
		t.Fatalf("unexpected request error: %v", err)
	}
	return &req
}
