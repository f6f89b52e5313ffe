package model

import "context"

// Embedder turns text into a fixed-length vector. For a fixed model the
// mapping is deterministic; an index built with one model must only be
// queried through an embedder reporting the same model name.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}
