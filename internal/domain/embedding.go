package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedding is a fixed-length image or text vector in the model's joint space.
type Embedding []float32

// Validate checks that the embedding is non-empty and matches the index
// dimensionality. Must pass before any backend call.
func (e Embedding) Validate(dim int) error {
	if len(e) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrValidation)
	}
	if len(e) != dim {
		return NewDimMismatch(len(e), dim)
	}
	return nil
}

// Cosine returns the cosine similarity between two embeddings.
// Returns 0 when lengths differ or either vector has zero norm.
func (e Embedding) Cosine(other Embedding) float64 {
	if len(e) != len(other) || len(e) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range e {
		a, b := float64(e[i]), float64(other[i])
		dot += a * b
		na += a * a
		nb += b * b
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    Embedding
	PromptTokens int
	TotalTokens  int
}
