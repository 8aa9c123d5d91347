// Package species holds the species reference record.
package species

import (
	"fmt"
	"slices"
	"strings"

	"github.com/faunalens/faunalens/internal/domain"
)

// Class is the taxonomic class of a species.
type Class string

// Supported taxonomic classes.
const (
	ClassMammal Class = "mammal"
	ClassBird   Class = "bird"
)

// IsValid reports whether the class is supported.
func (c Class) IsValid() bool {
	return c == ClassMammal || c == ClassBird
}

// Record is a single species reference entry. Records are static data loaded
// by the seeder; the API never mutates them.
type Record struct {
	id             string
	commonName     string
	scientificName string
	class          Class
	status         string // IUCN conservation status, may be empty
	ecoCodes       []string
	textEmbedding  domain.Embedding // CLIP text embedding of the description, may be nil
}

// New validates and creates a species record.
func New(id, commonName, scientificName string, class Class, status string, ecoCodes []string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("%w: species id is required", domain.ErrValidation)
	}
	if strings.ContainsAny(id, " ,\t\n") {
		return Record{}, fmt.Errorf("%w: species id %q contains separator characters", domain.ErrValidation, id)
	}
	if commonName == "" {
		return Record{}, fmt.Errorf("%w: common name is required for %q", domain.ErrValidation, id)
	}
	if scientificName == "" {
		return Record{}, fmt.Errorf("%w: scientific name is required for %q", domain.ErrValidation, id)
	}
	if !class.IsValid() {
		return Record{}, fmt.Errorf("%w: unknown taxonomic class %q for %q", domain.ErrValidation, class, id)
	}
	return Record{
		id:             id,
		commonName:     commonName,
		scientificName: scientificName,
		class:          class,
		status:         status,
		ecoCodes:       ecoCodes,
	}, nil
}

// Reconstruct rebuilds a record from storage without validation.
func Reconstruct(
	id, commonName, scientificName string, class Class, status string,
	ecoCodes []string, textEmbedding domain.Embedding,
) Record {
	return Record{
		id:             id,
		commonName:     commonName,
		scientificName: scientificName,
		class:          class,
		status:         status,
		ecoCodes:       ecoCodes,
		textEmbedding:  textEmbedding,
	}
}

// ID returns the species identifier.
func (r *Record) ID() string { return r.id }

// CommonName returns the common name.
func (r *Record) CommonName() string { return r.commonName }

// ScientificName returns the scientific (binomial) name.
func (r *Record) ScientificName() string { return r.scientificName }

// Class returns the taxonomic class.
func (r *Record) Class() Class { return r.class }

// ConservationStatus returns the IUCN status code, if known.
func (r *Record) ConservationStatus() string { return r.status }

// EcoCodes returns the ecoregion codes the species is documented in.
func (r *Record) EcoCodes() []string { return r.ecoCodes }

// TextEmbedding returns the description embedding, nil when not ingested.
func (r *Record) TextEmbedding() domain.Embedding { return r.textEmbedding }

// PresentIn reports whether the species occurs in the given ecoregion.
func (r *Record) PresentIn(ecoCode string) bool {
	return slices.Contains(r.ecoCodes, ecoCode)
}
