package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pulse/ingest"
	"pulse/model"
	"pulse/store"
	"pulse/types"
)

// ErrRebuildInProgress rejects a rebuild request while another one is
// still running. Rebuilds are never interleaved.
var ErrRebuildInProgress = errors.New("rebuild already in progress")

type State string

const (
	StateIdle              State = "idle"
	StateFetching          State = "fetching"
	StateValidating        State = "validating"
	StatePersistingDataset State = "persisting-dataset"
	StateIndexing          State = "indexing"
	StatePublished         State = "published"
	StateFailed            State = "failed"
)

// embedWorkers bounds concurrent calls to the embedding backend.
const embedWorkers = 4

// Coordinator refreshes the whole pipeline: fetch from the external
// source, normalize, chunk, embed, build a staged index, then publish
// index and dataset. A failure at any step leaves the previously
// published artifacts intact and servable.
type Coordinator struct {
	source      ingest.EventSource
	embedder    model.Embedder
	store       store.VectorStore
	chunker     *ingest.Chunker
	datasetPath string
	logger      *slog.Logger

	running sync.Mutex
	mu      sync.Mutex
	state   State
}

func NewCoordinator(source ingest.EventSource, embedder model.Embedder, vs store.VectorStore, chunker *ingest.Chunker, datasetPath string) *Coordinator {
	return &Coordinator{
		source:      source,
		embedder:    embedder,
		store:       vs,
		chunker:     chunker,
		datasetPath: datasetPath,
		logger:      slog.Default(),
		state:       StateIdle,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes one full rebuild. At most one run may be in progress;
// concurrent calls get ErrRebuildInProgress.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.TryLock() {
		return ErrRebuildInProgress
	}
	defer c.running.Unlock()

	start := time.Now()
	c.logger.Info("rebuild started")

	c.setState(StateFetching)
	raw, err := c.source.FetchAll(ctx)
	if err != nil {
		return c.fail(types.NewRebuildError(types.RebuildNoDataFetched, err))
	}
	if len(raw) == 0 {
		return c.fail(types.NewRebuildError(types.RebuildNoDataFetched, fmt.Errorf("source returned no events")))
	}

	c.setState(StateValidating)
	records := ingest.Normalize(raw)
	if len(records) == 0 {
		return c.fail(types.NewRebuildError(types.RebuildNoValidRecords, fmt.Errorf("no records left after filtering %d rows", len(raw))))
	}

	// The new dataset is staged next to the live one; the live file is
	// only replaced after the index publish succeeds.
	c.setState(StatePersistingDataset)
	stagedDataset := c.datasetPath + ".staging"
	if err := ingest.WriteDataset(stagedDataset, records); err != nil {
		return c.fail(types.NewRebuildError(types.RebuildIndexingFailed, err))
	}

	c.setState(StateIndexing)
	version, err := c.buildIndex(ctx, records)
	if err != nil {
		os.Remove(stagedDataset)
		return c.fail(types.NewRebuildError(types.RebuildIndexingFailed, err))
	}

	if err := c.store.Publish(ctx, version); err != nil {
		c.store.DiscardStaging(ctx, version)
		os.Remove(stagedDataset)
		return c.fail(types.NewRebuildError(types.RebuildIndexingFailed, err))
	}
	if err := ingest.PromoteDataset(stagedDataset, c.datasetPath); err != nil {
		// Index is already live; the stale dataset only affects the
		// next warm start.
		c.logger.Error("failed to promote staged dataset", "error", err.Error())
	}

	c.setState(StatePublished)
	c.logger.Info("rebuild published", "records", len(records), "took", time.Since(start).String())
	c.setState(StateIdle)
	return nil
}

func (c *Coordinator) fail(err *types.RebuildError) error {
	c.setState(StateFailed)
	c.logger.Error("rebuild aborted, published artifacts left untouched", "stage", string(err.Kind), "error", err.Error())
	return err
}

// WarmStart builds an index from the persisted dataset when none is
// published yet, e.g. on first boot after a deploy. Nothing to do when
// the dataset is missing or an index is already live.
func (c *Coordinator) WarmStart(ctx context.Context) error {
	if _, err := c.store.Meta(ctx); err == nil {
		c.logger.Info("index already published, skipping warm start")
		return nil
	} else if !errors.Is(err, store.ErrNoIndex) {
		return err
	}

	records, err := ingest.ReadDataset(c.datasetPath)
	if err != nil {
		var loadErr *types.DataLoadError
		if errors.As(err, &loadErr) {
			c.logger.Warn("no usable dataset for warm start", "error", err.Error())
			return nil
		}
		return err
	}
	if len(records) == 0 {
		c.logger.Warn("persisted dataset is empty, skipping warm start")
		return nil
	}

	version, err := c.buildIndex(ctx, records)
	if err != nil {
		return err
	}
	if err := c.store.Publish(ctx, version); err != nil {
		c.store.DiscardStaging(ctx, version)
		return err
	}
	c.logger.Info("warm start index published", "records", len(records))
	return nil
}

// buildIndex chunks and embeds records and stages the result. The
// staged version is discarded on any error.
func (c *Coordinator) buildIndex(ctx context.Context, records []types.EventRecord) (string, error) {
	chunks := c.chunker.SplitAll(records)
	if len(chunks) == 0 {
		return "", types.NewIndexError(types.IndexEmptyInput, nil)
	}

	entries := make([]types.VectorEntry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			vec, err := c.embedder.Embed(gctx, chunk.Text)
			if err != nil {
				return types.NewIndexError(types.IndexEmbeddingUnavailable, err)
			}
			entries[i] = types.VectorEntry{Chunk: chunk, Embedding: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	meta := types.IndexMeta{
		Model:      c.embedder.Model(),
		Dimensions: len(entries[0].Embedding),
		BuiltAt:    time.Now().UTC(),
	}
	return c.store.BuildStaging(ctx, entries, meta)
}
