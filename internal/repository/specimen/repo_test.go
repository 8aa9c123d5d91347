package specimen

import (
	"context"
	"errors"
	"testing"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
)

func TestSearchNearest_MapsEntries(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "faunalens:specimen:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if !q.RawScores {
			t.Error("expected raw distance scores")
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "faunalens:specimen:s1", Score: 0.10, Fields: map[string]string{"species_id": "panthera-onca"}},
				{Key: "faunalens:specimen:s2", Score: 0.25, Fields: map[string]string{"species_id": "puma-concolor"}},
			},
		}, nil
	}

	neighbors, err := repo.SearchNearest(context.Background(), domain.Embedding{0.1, 0.2}, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].SpeciesID != "panthera-onca" || neighbors[0].Distance != 0.10 {
		t.Errorf("unexpected first neighbor: %+v", neighbors[0])
	}
}

func TestSearchNearest_Allowlist(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if len(q.Filters) != 1 {
			t.Fatalf("expected 1 filter, got %d", len(q.Filters))
		}
		f := q.Filters[0]
		if f.Field != "species_id" || len(f.Values) != 2 {
			t.Errorf("unexpected filter: %+v", f)
		}
		return &db.SearchResult{}, nil
	}

	_, err := repo.SearchNearest(context.Background(), domain.Embedding{0.1},
		[]string{"panthera-onca", "puma-concolor"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchNearest_SkipsEntriesWithoutSpeciesID(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "faunalens:specimen:bad", Score: 0.1, Fields: map[string]string{}},
				{Key: "faunalens:specimen:ok", Score: 0.2, Fields: map[string]string{"species_id": "lynx-lynx"}},
			},
		}, nil
	}

	neighbors, err := repo.SearchNearest(context.Background(), domain.Embedding{0.1}, nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].SpeciesID != "lynx-lynx" {
		t.Errorf("unexpected neighbors: %+v", neighbors)
	}
}

func TestSearchNearest_BackendError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("connection refused")
	}

	_, err := repo.SearchNearest(context.Background(), domain.Embedding{0.1}, nil, 5)
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestIndex_Definition(t *testing.T) {
	idx := Index(1024, 32, 400)
	if idx.Name != IndexName {
		t.Errorf("unexpected name: %s", idx.Name)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(idx.Fields))
	}
	vec := idx.Fields[2]
	if vec.VectorDim != 1024 || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestHashFields(t *testing.T) {
	m := HashFields("panthera-onca", []string{"NT0135", "NT0124"}, domain.Embedding{1.0})
	if m["species_id"] != "panthera-onca" {
		t.Errorf("unexpected species_id: %s", m["species_id"])
	}
	if m["eco_codes"] != "NT0135,NT0124" {
		t.Errorf("unexpected eco_codes: %s", m["eco_codes"])
	}
	if len(m["embedding"]) != 4 {
		t.Errorf("expected 4-byte embedding blob, got %d bytes", len(m["embedding"]))
	}
}

func TestUpsertBatch_BuildsKeys(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	err := repo.UpsertBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if got != nil {
		t.Error("empty batch should not hit the store")
	}

	err = repo.UpsertBatch(context.Background(), []Entry{
		{ID: "sp-001", SpeciesID: "panthera-onca", EcoCodes: []string{"NT0135"}, Embedding: domain.Embedding{0.5}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Key != KeyPrefix+"sp-001" {
		t.Fatalf("unexpected items: %+v", got)
	}
	if got[0].Fields["species_id"] != "panthera-onca" {
		t.Errorf("unexpected fields: %+v", got[0].Fields)
	}
}
