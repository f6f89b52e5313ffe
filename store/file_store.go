package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pulse/types"
)

const currentPointerFile = "CURRENT"

// FileStore keeps the vector index on disk under a root directory:
//
//	root/CURRENT        -> name of the live version directory
//	root/v-<ts>/index.json
//	root/staging-v-<ts>/index.json
//
// Publishing renames the staging directory into place and then rewrites
// CURRENT through a temp file and rename, so readers always see either
// the old or the new index, never a partial one.
type FileStore struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	cached *loadedIndex
}

type loadedIndex struct {
	version string
	meta    types.IndexMeta
	entries []types.VectorEntry
}

type indexFile struct {
	Meta    types.IndexMeta     `json:"meta"`
	Entries []types.VectorEntry `json:"entries"`
}

func NewFileStore(root string) *FileStore {
	return &FileStore{
		root:   root,
		logger: slog.Default(),
	}
}

func (s *FileStore) Meta(ctx context.Context) (*types.IndexMeta, error) {
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	meta := idx.meta
	return &meta, nil
}

func (s *FileStore) BuildStaging(ctx context.Context, entries []types.VectorEntry, meta types.IndexMeta) (string, error) {
	if len(entries) == 0 {
		return "", types.NewIndexError(types.IndexEmptyInput, nil)
	}
	for i, entry := range entries {
		if len(entry.Embedding) != meta.Dimensions {
			return "", types.NewIndexError(types.IndexModelMismatch,
				fmt.Errorf("entry %d has %d dimensions, index has %d", i, len(entry.Embedding), meta.Dimensions))
		}
	}

	version := fmt.Sprintf("v-%d", time.Now().UnixNano())
	dir := filepath.Join(s.root, "staging-"+version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.NewIndexError(types.IndexWriteFailure, err)
	}

	meta.Entries = len(entries)
	data, err := json.Marshal(indexFile{Meta: meta, Entries: entries})
	if err != nil {
		return "", types.NewIndexError(types.IndexWriteFailure, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", types.NewIndexError(types.IndexWriteFailure, err)
	}
	return version, nil
}

func (s *FileStore) Publish(ctx context.Context, version string) error {
	staging := filepath.Join(s.root, "staging-"+version)
	if _, err := os.Stat(staging); err != nil {
		return types.NewIndexError(types.IndexWriteFailure, fmt.Errorf("staged version %s not found: %w", version, err))
	}
	live := filepath.Join(s.root, version)
	if err := os.Rename(staging, live); err != nil {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}

	// The pointer swap is the publish point.
	tmp := filepath.Join(s.root, currentPointerFile+".tmp")
	if err := os.WriteFile(tmp, []byte(version), 0o644); err != nil {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.root, currentPointerFile)); err != nil {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	s.prune(version)
	return nil
}

func (s *FileStore) DiscardStaging(ctx context.Context, version string) error {
	return os.RemoveAll(filepath.Join(s.root, "staging-"+version))
}

func (s *FileStore) Search(ctx context.Context, query []float32, k int) ([]types.Chunk, error) {
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(query) != idx.meta.Dimensions {
		return nil, types.NewIndexError(types.IndexModelMismatch,
			fmt.Errorf("query has %d dimensions, index has %d", len(query), idx.meta.Dimensions))
	}
	if k <= 0 {
		return nil, nil
	}

	order := make([]int, len(idx.entries))
	scores := make([]float64, len(idx.entries))
	for i, entry := range idx.entries {
		order[i] = i
		scores[i] = cosine(query, entry.Embedding)
	}
	// Stable keeps insertion order for equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	chunks := make([]types.Chunk, 0, k)
	for _, i := range order[:k] {
		chunk := idx.entries[i].Chunk
		chunk.Score = scores[i]
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *FileStore) load() (*loadedIndex, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, currentPointerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIndex
		}
		return nil, err
	}
	version := strings.TrimSpace(string(raw))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.cached.version == version {
		return s.cached, nil
	}

	data, err := os.ReadFile(filepath.Join(s.root, version, "index.json"))
	if err != nil {
		return nil, err
	}
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	s.cached = &loadedIndex{version: version, meta: file.Meta, entries: file.Entries}
	return s.cached, nil
}

// prune removes version and staging directories superseded by keep.
func (s *FileStore) prune(keep string) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == keep {
			continue
		}
		if strings.HasPrefix(d.Name(), "v-") || strings.HasPrefix(d.Name(), "staging-") {
			if err := os.RemoveAll(filepath.Join(s.root, d.Name())); err != nil {
				s.logger.Error("failed to prune index version", "dir", d.Name(), "error", err.Error())
			}
		}
	}
}

func cosine(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
