package store

import (
	"context"
	"errors"

	"pulse/types"
)

// ErrNoIndex is returned when no index has been published yet at the
// configured location. Distinct from an index that exists but is empty.
var ErrNoIndex = errors.New("no index published")

// VectorStore owns the persisted index. A new index is always built
// into a staging location and becomes visible to Search only after
// Publish; a failed build never disturbs the published index. Search
// never mutates the index.
type VectorStore interface {
	// Meta describes the currently published index, or ErrNoIndex.
	Meta(ctx context.Context) (*types.IndexMeta, error)

	// BuildStaging writes a complete index to a staging location and
	// returns its version token. Empty input and mixed-dimension
	// entries are rejected with an IndexError.
	BuildStaging(ctx context.Context, entries []types.VectorEntry, meta types.IndexMeta) (string, error)

	// Publish atomically makes a staged version the one Search reads.
	// Superseded versions may be discarded afterwards.
	Publish(ctx context.Context, version string) error

	// DiscardStaging drops a staged version that will not be published.
	DiscardStaging(ctx context.Context, version string) error

	// Search returns the k entries most similar to the query vector,
	// highest score first, ties broken by insertion order.
	Search(ctx context.Context, query []float32, k int) ([]types.Chunk, error)
}
