// Package ecoregion implements coordinate-to-ecoregion resolution.
package ecoregion

import (
	"context"
	"fmt"

	"github.com/faunalens/faunalens/internal/domain"
	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	"github.com/faunalens/faunalens/internal/domain/geo"
)

// Locator resolves coordinates to the containing ecoregion.
type Locator interface {
	LocateByPoint(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error)
}

// Reader resolves ecoregion codes.
type Reader interface {
	GetByCode(ctx context.Context, code string) (domeco.Ecoregion, error)
}

// Service handles ecoregion lookups.
type Service struct {
	locator Locator
	reader  Reader
}

// New creates an ecoregion service.
func New(locator Locator, reader Reader) *Service {
	return &Service{locator: locator, reader: reader}
}

// ByCoordinates returns the ecoregion containing the given point.
func (s *Service) ByCoordinates(ctx context.Context, lat, lon float64) (domeco.Ecoregion, error) {
	if !geo.ValidateCoordinates(lat, lon) {
		return domeco.Ecoregion{}, fmt.Errorf("%w: coordinates (%f, %f) out of range",
			domain.ErrValidation, lat, lon)
	}
	eco, err := s.locator.LocateByPoint(ctx, lat, lon)
	if err != nil {
		return domeco.Ecoregion{}, fmt.Errorf("locate by point: %w", err)
	}
	return eco, nil
}

// ByCode returns the ecoregion with the given WWF code.
func (s *Service) ByCode(ctx context.Context, code string) (domeco.Ecoregion, error) {
	if err := domeco.ValidateCode(code); err != nil {
		return domeco.Ecoregion{}, err
	}
	eco, err := s.reader.GetByCode(ctx, code)
	if err != nil {
		return domeco.Ecoregion{}, fmt.Errorf("get by code: %w", err)
	}
	return eco, nil
}
