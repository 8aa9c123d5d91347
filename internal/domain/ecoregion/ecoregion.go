// Package ecoregion holds the WWF ecoregion reference type.
package ecoregion

import (
	"fmt"
	"regexp"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/faunalens/faunalens/internal/domain"
)

// codeRegex matches WWF ecoregion codes, e.g. NA0528.
var codeRegex = regexp.MustCompile(`^[A-Z]{2}\d{4}$`)

// ValidateCode checks the WWF ecoregion code format.
func ValidateCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: ecoregion code is required", domain.ErrValidation)
	}
	if !codeRegex.MatchString(code) {
		return fmt.Errorf("%w: malformed ecoregion code %q", domain.ErrValidation, code)
	}
	return nil
}

// Ecoregion is a WWF terrestrial ecoregion. Geometry coordinates follow
// GeoJSON order (lon, lat).
type Ecoregion struct {
	code     string
	name     string
	biome    string
	realm    string
	geometry geom.T // *geom.Polygon or *geom.MultiPolygon, may be nil
}

// New validates and creates an ecoregion.
func New(code, name, biome, realm string, geometry geom.T) (Ecoregion, error) {
	if err := ValidateCode(code); err != nil {
		return Ecoregion{}, err
	}
	if name == "" {
		return Ecoregion{}, fmt.Errorf("%w: ecoregion name is required for %s", domain.ErrValidation, code)
	}
	if geometry != nil {
		switch geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			return Ecoregion{}, fmt.Errorf("%w: ecoregion %s geometry must be polygonal", domain.ErrValidation, code)
		}
	}
	return Ecoregion{code: code, name: name, biome: biome, realm: realm, geometry: geometry}, nil
}

// Reconstruct rebuilds an ecoregion from storage without validation.
func Reconstruct(code, name, biome, realm string, geometry geom.T) Ecoregion {
	return Ecoregion{code: code, name: name, biome: biome, realm: realm, geometry: geometry}
}

// Code returns the WWF ecoregion code.
func (e *Ecoregion) Code() string { return e.code }

// Name returns the ecoregion name.
func (e *Ecoregion) Name() string { return e.name }

// Biome returns the biome name.
func (e *Ecoregion) Biome() string { return e.biome }

// Realm returns the biogeographic realm.
func (e *Ecoregion) Realm() string { return e.realm }

// Geometry returns the boundary geometry, nil when not ingested.
func (e *Ecoregion) Geometry() geom.T { return e.geometry }

// Contains reports whether the point lies inside the ecoregion boundary.
// Always false when no geometry is loaded.
func (e *Ecoregion) Contains(lat, lon float64) bool {
	switch g := e.geometry.(type) {
	case *geom.Polygon:
		return polygonContains(g, lat, lon)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), lat, lon) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Centroid returns the geometric centroid as (lat, lon). ok is false when no
// geometry is loaded.
func (e *Ecoregion) Centroid() (lat, lon float64, ok bool) {
	if e.geometry == nil {
		return 0, 0, false
	}
	c, err := xy.Centroid(e.geometry)
	if err != nil || len(c) < 2 {
		return 0, 0, false
	}
	return c[1], c[0], true
}

// polygonContains tests the outer ring, then excludes holes.
func polygonContains(p *geom.Polygon, lat, lon float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	pt := geom.Coord{lon, lat}
	if !xy.IsPointInRing(p.Layout(), pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
