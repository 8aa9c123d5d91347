package specimen

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/faunalens/faunalens/internal/domain"
)

// HashFields builds the flat HSET map for one specimen record.
func HashFields(speciesID string, ecoCodes []string, embedding domain.Embedding) map[string]string {
	return map[string]string{
		fieldSpeciesID: speciesID,
		fieldEcoCodes:  strings.Join(ecoCodes, ","),
		fieldEmbedding: vectorToBytes(embedding),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
