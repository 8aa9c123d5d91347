// Package species implements the species-by-ecoregion listing.
package species

import (
	"context"
	"fmt"
	"sort"

	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

// maxListPage bounds a single listing query.
const maxListPage = 500

// Lister reads species records per ecoregion.
type Lister interface {
	ListByEcoregion(ctx context.Context, ecoCode string, offset, limit int) ([]domspecies.Record, int, error)
}

// EcoregionReader resolves ecoregion codes to reference records.
type EcoregionReader interface {
	GetByCode(ctx context.Context, code string) (domeco.Ecoregion, error)
}

// ClassGroup holds the species of one taxonomic class, common name order.
type ClassGroup struct {
	Class   domspecies.Class
	Species []domspecies.Record
}

// Listing is the grouped species inventory of an ecoregion.
type Listing struct {
	EcoCode       string
	EcoregionName string
	Total         int
	Groups        []ClassGroup
}

// Service handles species inventory queries.
type Service struct {
	lister  Lister
	regions EcoregionReader
}

// New creates a species listing service.
func New(lister Lister, regions EcoregionReader) *Service {
	return &Service{lister: lister, regions: regions}
}

// ByEcoregion lists the species documented in an ecoregion, grouped by
// taxonomic class. Classes and species within a class are sorted for
// deterministic output.
func (s *Service) ByEcoregion(ctx context.Context, ecoCode string) (Listing, error) {
	if err := domeco.ValidateCode(ecoCode); err != nil {
		return Listing{}, err
	}

	eco, err := s.regions.GetByCode(ctx, ecoCode)
	if err != nil {
		return Listing{}, fmt.Errorf("resolve ecoregion: %w", err)
	}

	records, total, err := s.listAll(ctx, ecoCode)
	if err != nil {
		return Listing{}, fmt.Errorf("list species: %w", err)
	}

	byClass := make(map[domspecies.Class][]domspecies.Record)
	for _, rec := range records {
		byClass[rec.Class()] = append(byClass[rec.Class()], rec)
	}

	classes := make([]domspecies.Class, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	groups := make([]ClassGroup, 0, len(classes))
	for _, c := range classes {
		members := byClass[c]
		sort.Slice(members, func(i, j int) bool {
			return members[i].CommonName() < members[j].CommonName()
		})
		groups = append(groups, ClassGroup{Class: c, Species: members})
	}

	return Listing{
		EcoCode:       eco.Code(),
		EcoregionName: eco.Name(),
		Total:         total,
		Groups:        groups,
	}, nil
}

// listAll pages through the ecoregion's species until the reported total is
// collected, so ecoregions larger than one page are never truncated.
func (s *Service) listAll(ctx context.Context, ecoCode string) ([]domspecies.Record, int, error) {
	var records []domspecies.Record
	total := 0
	for offset := 0; ; offset += maxListPage {
		page, t, err := s.lister.ListByEcoregion(ctx, ecoCode, offset, maxListPage)
		if err != nil {
			return nil, 0, err
		}
		total = t
		records = append(records, page...)
		if len(page) == 0 || len(records) >= total {
			break
		}
	}
	return records, total, nil
}
