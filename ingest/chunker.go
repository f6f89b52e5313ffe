package ingest

import (
	"fmt"

	"github.com/google/uuid"

	"pulse/types"
)

// DefaultChunkSize is the chunk length in runes.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the number of runes shared between consecutive chunks.
const DefaultChunkOverlap = 120

// chunkNamespace makes chunk ids a pure function of source id and
// position, so two rebuilds of the same corpus produce the same ids.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Chunker splits a record's composed text into fixed-size overlapping
// spans. Boundaries are deterministic for a given size and overlap.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts the record's composed text into chunks. Text no longer than
// the chunk size yields exactly one chunk equal to the text. For longer
// text every consecutive pair overlaps by exactly the configured
// overlap; the final chunk may be shorter.
func (c *Chunker) Split(rec types.EventRecord) []types.Chunk {
	runes := []rune(rec.ComposedText)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]types.Chunk, 0, len(runes)/step+1)

	for start, i := 0, 0; start < len(runes); start, i = start+step, i+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		overlap := 0
		if i > 0 {
			overlap = c.overlap
		}
		chunks = append(chunks, types.Chunk{
			ID:       uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", rec.ID, i))),
			SourceID: rec.ID,
			Index:    i,
			Text:     string(runes[start:end]),
			Overlap:  overlap,
			Title:    rec.Title,
			City:     rec.City,
			DateEnd:  rec.DateEnd,
		})

		if end == len(runes) {
			break
		}
	}
	return chunks
}

// SplitAll chunks every record in order.
func (c *Chunker) SplitAll(records []types.EventRecord) []types.Chunk {
	var chunks []types.Chunk
	for _, rec := range records {
		chunks = append(chunks, c.Split(rec)...)
	}
	return chunks
}
