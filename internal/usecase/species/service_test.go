package species

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

// --- Mocks ---

type mockLister struct {
	fn func(ctx context.Context, ecoCode string, offset, limit int) ([]domspecies.Record, int, error)
}

func (m *mockLister) ListByEcoregion(
	ctx context.Context, ecoCode string, offset, limit int,
) ([]domspecies.Record, int, error) {
	if m.fn != nil {
		return m.fn(ctx, ecoCode, offset, limit)
	}
	return nil, 0, nil
}

type mockRegions struct {
	fn func(ctx context.Context, code string) (domeco.Ecoregion, error)
}

func (m *mockRegions) GetByCode(ctx context.Context, code string) (domeco.Ecoregion, error) {
	if m.fn != nil {
		return m.fn(ctx, code)
	}
	return domeco.Reconstruct(code, "Test Region", "", "", nil), nil
}

func rec(t *testing.T, id, commonName string, class domspecies.Class) domspecies.Record {
	t.Helper()
	r, err := domspecies.New(id, commonName, "Sci "+commonName, class, "LC", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

// --- Tests ---

func TestByEcoregion_GroupsAndSorts(t *testing.T) {
	lister := &mockLister{fn: func(_ context.Context, _ string, _, _ int) ([]domspecies.Record, int, error) {
		return []domspecies.Record{
			rec(t, "c", "Wolf", domspecies.ClassMammal),
			rec(t, "a", "Harpy Eagle", domspecies.ClassBird),
			rec(t, "b", "Jaguar", domspecies.ClassMammal),
		}, 3, nil
	}}
	svc := New(lister, &mockRegions{})

	listing, err := svc.ByEcoregion(context.Background(), "NT0135")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.EcoCode != "NT0135" || listing.EcoregionName != "Test Region" || listing.Total != 3 {
		t.Errorf("unexpected listing header: %+v", listing)
	}
	if len(listing.Groups) != 2 {
		t.Fatalf("expected 2 class groups, got %d", len(listing.Groups))
	}
	if listing.Groups[0].Class != domspecies.ClassBird {
		t.Errorf("expected bird group first, got %s", listing.Groups[0].Class)
	}
	mammals := listing.Groups[1].Species
	if mammals[0].CommonName() != "Jaguar" || mammals[1].CommonName() != "Wolf" {
		t.Errorf("mammals not sorted by common name: %s, %s",
			mammals[0].CommonName(), mammals[1].CommonName())
	}
}

func TestByEcoregion_PagesLargeRegion(t *testing.T) {
	total := maxListPage + 2
	calls := 0
	lister := &mockLister{fn: func(_ context.Context, _ string, offset, limit int) ([]domspecies.Record, int, error) {
		calls++
		if limit != maxListPage {
			t.Errorf("unexpected limit: %d", limit)
		}
		page := make([]domspecies.Record, 0, limit)
		for i := offset; i < total && i < offset+limit; i++ {
			page = append(page, rec(t, fmt.Sprintf("sp-%04d", i), fmt.Sprintf("Species %04d", i),
				domspecies.ClassMammal))
		}
		return page, total, nil
	}}
	svc := New(lister, &mockRegions{})

	listing, err := svc.ByEcoregion(context.Background(), "NT0135")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 pages, got %d calls", calls)
	}
	if listing.Total != total {
		t.Errorf("expected total %d, got %d", total, listing.Total)
	}
	got := 0
	for _, g := range listing.Groups {
		got += len(g.Species)
	}
	if got != total {
		t.Errorf("expected %d species across groups, got %d", total, got)
	}
}

func TestByEcoregion_BadCode(t *testing.T) {
	svc := New(&mockLister{}, &mockRegions{})

	_, err := svc.ByEcoregion(context.Background(), "not-a-code")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestByEcoregion_UnknownRegion(t *testing.T) {
	regions := &mockRegions{fn: func(_ context.Context, code string) (domeco.Ecoregion, error) {
		return domeco.Ecoregion{}, domain.ErrEcoregionNotFound
	}}
	svc := New(&mockLister{}, regions)

	_, err := svc.ByEcoregion(context.Background(), "XX9999")
	if !errors.Is(err, domain.ErrEcoregionNotFound) {
		t.Errorf("expected ErrEcoregionNotFound, got %v", err)
	}
}

func TestByEcoregion_EmptyRegion(t *testing.T) {
	svc := New(&mockLister{}, &mockRegions{})

	listing, err := svc.ByEcoregion(context.Background(), "NT0135")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listing.Groups) != 0 || listing.Total != 0 {
		t.Errorf("expected empty listing, got %+v", listing)
	}
}
