package search

import (
	"context"
	"errors"
	"log/slog"

	"pulse/model"
	"pulse/store"
	"pulse/types"
)

// DefaultTopK is the number of chunks returned when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// Engine answers similarity queries against the published index. A
// missing or unreadable index degrades to an empty result so the caller
// can still answer "no matching information"; the failure is logged so
// outages stay visible to operators. A model or dimensionality mismatch
// between the embedder and the index is a configuration fault and is
// returned as an error instead.
type Engine struct {
	store    store.VectorStore
	embedder model.Embedder
	logger   *slog.Logger
}

func NewEngine(vs store.VectorStore, embedder model.Embedder) *Engine {
	return &Engine{
		store:    vs,
		embedder: embedder,
		logger:   slog.Default(),
	}
}

// Search embeds the query with the index's model and returns the top-k
// chunks, highest score first.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]types.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	meta, err := e.store.Meta(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoIndex) {
			e.logger.Error("search without a published index, returning no context")
		} else {
			e.logger.Error("index metadata unreadable, returning no context", "error", err.Error())
		}
		return nil, nil
	}
	if meta.Model != e.embedder.Model() {
		return nil, types.NewIndexError(types.IndexModelMismatch, nil)
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Error("query embedding failed, returning no context", "error", err.Error())
		return nil, nil
	}
	if len(vec) != meta.Dimensions {
		return nil, types.NewIndexError(types.IndexModelMismatch, nil)
	}

	chunks, err := e.store.Search(ctx, vec, k)
	if err != nil {
		var idxErr *types.IndexError
		if errors.As(err, &idxErr) && idxErr.Kind == types.IndexModelMismatch {
			return nil, err
		}
		e.logger.Error("index search failed, returning no context", "error", err.Error())
		return nil, nil
	}
	return chunks, nil
}
