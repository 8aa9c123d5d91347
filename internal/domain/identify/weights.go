package identify

import (
	"fmt"

	"github.com/faunalens/faunalens/internal/domain"
)

// Default rerank weights, matching the identify endpoint's implicit split.
const (
	DefaultImageWeight = 0.6
	DefaultTextWeight  = 0.4
)

// Weights blend image and text similarity when reranking candidates.
type Weights struct {
	image float64
	text  float64
}

// NewWeights validates and creates a weight pair. Both must be non-negative
// and at least one positive.
func NewWeights(image, text float64) (Weights, error) {
	if image < 0 || text < 0 {
		return Weights{}, fmt.Errorf("%w: weights must be non-negative", domain.ErrValidation)
	}
	if image == 0 && text == 0 {
		return Weights{}, fmt.Errorf("%w: at least one weight must be positive", domain.ErrValidation)
	}
	return Weights{image: image, text: text}, nil
}

// DefaultWeights returns the standard image/text split.
func DefaultWeights() Weights {
	return Weights{image: DefaultImageWeight, text: DefaultTextWeight}
}

// Image returns the image similarity weight.
func (w Weights) Image() float64 { return w.image }

// Text returns the text similarity weight.
func (w Weights) Text() float64 { return w.text }

// Combine returns the weighted similarity blend.
func (w Weights) Combine(imageSim, textSim float64) float64 {
	return w.image*imageSim + w.text*textSim
}
