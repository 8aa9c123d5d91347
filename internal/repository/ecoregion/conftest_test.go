package ecoregion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/faunalens/faunalens/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn   func(ctx context.Context, key string) (map[string]string, error)
	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

// squareGeoJSON returns a polygon covering [lonMin,lonMax]x[latMin,latMax].
func squareGeoJSON(t *testing.T, lonMin, latMin, lonMax, latMax float64) string {
	t.Helper()
	poly := map[string]any{
		"type": "Polygon",
		"coordinates": [][][]float64{{
			{lonMin, latMin}, {lonMax, latMin}, {lonMax, latMax}, {lonMin, latMax}, {lonMin, latMin},
		}},
	}
	raw, err := json.Marshal(poly)
	if err != nil {
		t.Fatalf("marshal polygon: %v", err)
	}
	return string(raw)
}

func amazonFields(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"name":     "Southwest Amazon moist forests",
		"biome":    "Tropical & Subtropical Moist Broadleaf Forests",
		"realm":    "Neotropic",
		"geometry": squareGeoJSON(t, -75, -15, -65, -5),
	}
}
