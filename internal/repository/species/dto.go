package species

import (
	"encoding/binary"
	"math"
	"strings"

	domspecies "github.com/faunalens/faunalens/internal/domain/species"
)

const (
	fieldCommonName     = "common_name"
	fieldScientificName = "scientific_name"
	fieldClass          = "class"
	fieldStatus         = "conservation_status"
	fieldEcoCodes       = "eco_codes"
	fieldTextEmbedding  = "text_embedding"
)

// buildHashFields converts a species record into a flat map[string]string for HSET.
func buildHashFields(rec *domspecies.Record) map[string]string {
	m := map[string]string{
		fieldCommonName:     rec.CommonName(),
		fieldScientificName: rec.ScientificName(),
		fieldClass:          string(rec.Class()),
		fieldStatus:         rec.ConservationStatus(),
		fieldEcoCodes:       strings.Join(rec.EcoCodes(), ","),
	}
	if emb := rec.TextEmbedding(); len(emb) > 0 {
		m[fieldTextEmbedding] = vectorToBytes(emb)
	}
	return m
}

// parseHashFields converts a flat hash map back into a species record.
func parseHashFields(id string, m map[string]string) domspecies.Record {
	var ecoCodes []string
	if raw := m[fieldEcoCodes]; raw != "" {
		ecoCodes = strings.Split(raw, ",")
	}
	return domspecies.Reconstruct(
		id,
		m[fieldCommonName],
		m[fieldScientificName],
		domspecies.Class(m[fieldClass]),
		m[fieldStatus],
		ecoCodes,
		bytesToVector(m[fieldTextEmbedding]),
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
