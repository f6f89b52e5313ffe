package types

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one event row as delivered by the external source,
// before any cleaning.
type RawRecord struct {
	ID          string
	Title       string
	Description string
	City        string
	DateEnd     *time.Time
}

// EventRecord is a cleaned, immutable event. Records are produced by the
// normalizer and replaced wholesale on every rebuild.
type EventRecord struct {
	ID           string
	Title        string
	Description  string
	City         string
	DateEnd      *time.Time
	ComposedText string // derived text used for embedding
}

// Chunk is a bounded span of a record's composed text. Metadata is
// carried through so answers can attribute their sources.
type Chunk struct {
	ID       uuid.UUID  `json:"id"`
	SourceID string     `json:"source_id"`
	Index    int        `json:"index"`
	Text     string     `json:"text"`
	Overlap  int        `json:"overlap"` // runes shared with the previous chunk
	Title    string     `json:"title"`
	City     string     `json:"city"`
	DateEnd  *time.Time `json:"date_end,omitempty"`
	Score    float64    `json:"-"` // similarity to the query, set by search
}

// VectorEntry pairs a chunk with its embedding inside an index.
type VectorEntry struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// IndexMeta describes a built index. Model and Dimensions are fixed for
// the whole index; a query embedded with a different model must be
// rejected rather than compared.
type IndexMeta struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Entries    int       `json:"entries"`
	BuiltAt    time.Time `json:"built_at"`
}

// Feedback is one user rating of an answer.
type Feedback struct {
	Question string
	Answer   string
	Sources  string
	Label    string // "positive" / "negative"
	Value    int    // 1 = positive, 0 = negative
	Comment  string
}
