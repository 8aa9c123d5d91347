package identify

// Neighbor is a single specimen hit from the vector index, before species
// dedup. Distance is the raw cosine distance.
type Neighbor struct {
	SpeciesID string
	Distance  float64
}
