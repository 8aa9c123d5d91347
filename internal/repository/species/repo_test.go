package species

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/faunalens/faunalens/internal/db"
	"github.com/faunalens/faunalens/internal/domain"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

func TestGet_Success(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "faunalens:species:panthera-onca" {
			t.Errorf("unexpected key: %s", key)
		}
		return jaguarFields(), nil
	}

	rec, err := repo.Get(context.Background(), "panthera-onca")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CommonName() != "Jaguar" || rec.Class() != domspecies.ClassMammal {
		t.Errorf("unexpected record: %s %s", rec.CommonName(), rec.Class())
	}
	if !rec.PresentIn("NT0135") {
		t.Error("expected presence in NT0135")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_BackendError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return nil, errors.New("connection reset")
	}

	_, err := repo.Get(context.Background(), "panthera-onca")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestGetMulti_DropsMissing(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 2 {
			t.Fatalf("expected 2 keys, got %d", len(keys))
		}
		return []map[string]string{jaguarFields(), {}}, nil
	}

	records, err := repo.GetMulti(context.Background(), []string{"panthera-onca", "stale-id"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID() != "panthera-onca" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGetMulti_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)
	records, err := repo.GetMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil, got %v", records)
	}
}

func TestListByEcoregion(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(
		_ context.Context, index, query string, offset, limit int, _ []string,
	) (*db.SearchResult, error) {
		if index != IndexName {
			t.Errorf("unexpected index: %s", index)
		}
		if query != "@eco_codes:{NT0135}" {
			t.Errorf("unexpected query: %s", query)
		}
		if offset != 0 || limit != 20 {
			t.Errorf("unexpected pagination: %d %d", offset, limit)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{Key: "faunalens:species:panthera-onca", Fields: jaguarFields()},
			},
		}, nil
	}

	records, total, err := repo.ListByEcoregion(context.Background(), "NT0135", 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("unexpected result: total=%d len=%d", total, len(records))
	}
	if records[0].ID() != "panthera-onca" {
		t.Errorf("unexpected id: %s", records[0].ID())
	}
}

func TestSpeciesIDsByEcoregion_Pages(t *testing.T) {
	repo, ms := newTestRepo(t)

	calls := 0
	ms.searchListFn = func(
		_ context.Context, _, query string, offset, limit int, _ []string,
	) (*db.SearchResult, error) {
		if query != "@eco_codes:{PA0605}" {
			t.Errorf("unexpected query: %s", query)
		}
		calls++
		if offset == 0 {
			entries := make([]db.SearchEntry, limit)
			for i := range entries {
				entries[i] = db.SearchEntry{Key: fmt.Sprintf("faunalens:species:sp-%03d", i)}
			}
			return &db.SearchResult{Total: limit + 1, Entries: entries}, nil
		}
		return &db.SearchResult{
			Total:   limit + 1,
			Entries: []db.SearchEntry{{Key: "faunalens:species:sp-last"}},
		}, nil
	}

	ids, err := repo.SpeciesIDsByEcoregion(context.Background(), "PA0605")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 pages, got %d", calls)
	}
	if len(ids) != 501 || ids[len(ids)-1] != "sp-last" {
		t.Errorf("unexpected ids: len=%d last=%s", len(ids), ids[len(ids)-1])
	}
}

func TestUpsertBatch(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		captured = items
		return nil
	}

	rec, err := domspecies.New("canis-lupus", "Gray Wolf", "Canis lupus",
		domspecies.ClassMammal, "LC", []string{"PA0605"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.UpsertBatch(context.Background(), []domspecies.Record{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected 1 item, got %d", len(captured))
	}
	if captured[0].Key != "faunalens:species:canis-lupus" {
		t.Errorf("unexpected key: %s", captured[0].Key)
	}
	if captured[0].Fields["scientific_name"] != "Canis lupus" {
		t.Errorf("unexpected fields: %v", captured[0].Fields)
	}
}

func TestExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, key string) (bool, error) {
		return key == "faunalens:species:panthera-onca", nil
	}

	ok, err := repo.Exists(context.Background(), "panthera-onca")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected existing species to be reported")
	}

	ok, err = repo.Exists(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected missing species to be reported absent")
	}
}

func TestExists_BackendError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) {
		return false, errors.New("connection reset")
	}

	_, err := repo.Exists(context.Background(), "panthera-onca")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestHashFieldsRoundTrip_TextEmbedding(t *testing.T) {
	rec := domspecies.Reconstruct("lynx-lynx", "Eurasian Lynx", "Lynx lynx",
		domspecies.ClassMammal, "LC", []string{"PA0605"}, domain.Embedding{0.5, -0.25})

	parsed := parseHashFields("lynx-lynx", buildHashFields(&rec))
	emb := parsed.TextEmbedding()
	if len(emb) != 2 || emb[0] != 0.5 || emb[1] != -0.25 {
		t.Errorf("unexpected embedding after round trip: %v", emb)
	}
}
