package ecoregion

import (
	"encoding/binary"
	"fmt"
	"math"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	domeco "github.com/faunalens/faunalens/internal/domain/ecoregion"
	"github.com/faunalens/faunalens/internal/domain/geo"
)

const (
	fieldName     = "name"
	fieldBiome    = "biome"
	fieldRealm    = "realm"
	fieldGeometry = "geometry"
	fieldCentroid = "centroid"
)

// buildHashFields converts an ecoregion into a flat map[string]string for
// HSET. Geometry is stored as GeoJSON, the centroid as an ECEF unit vector
// blob for the KNN index.
func buildHashFields(eco *domeco.Ecoregion) (map[string]string, error) {
	m := map[string]string{
		fieldName:  eco.Name(),
		fieldBiome: eco.Biome(),
		fieldRealm: eco.Realm(),
	}

	g := eco.Geometry()
	if g == nil {
		return m, nil
	}

	raw, err := geojson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal geometry: %w", err)
	}
	m[fieldGeometry] = string(raw)

	if lat, lon, ok := eco.Centroid(); ok {
		m[fieldCentroid] = vectorToBytes(geo.ToVector(lat, lon))
	}
	return m, nil
}

// parseHashFields converts a flat hash map back into an ecoregion.
func parseHashFields(code string, m map[string]string) (domeco.Ecoregion, error) {
	var g geom.T
	if raw := m[fieldGeometry]; raw != "" {
		if err := geojson.Unmarshal([]byte(raw), &g); err != nil {
			return domeco.Ecoregion{}, fmt.Errorf("unmarshal geometry for %s: %w", code, err)
		}
	}
	return domeco.Reconstruct(code, m[fieldName], m[fieldBiome], m[fieldRealm], g), nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
