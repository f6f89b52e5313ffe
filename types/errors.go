package types

import "fmt"

// DataLoadError reports an unreadable or structurally invalid dataset.
// An empty dataset is not an error; callers get an empty slice instead.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

type IndexErrorKind string

const (
	IndexEmptyInput           IndexErrorKind = "empty input"
	IndexEmbeddingUnavailable IndexErrorKind = "embedding unavailable"
	IndexWriteFailure         IndexErrorKind = "write failure"
	IndexModelMismatch        IndexErrorKind = "model mismatch"
)

// IndexError reports a failed index build or an index that cannot be
// queried with the configured embedding model.
type IndexError struct {
	Kind IndexErrorKind
	Err  error
}

func (e *IndexError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("index error: %s", e.Kind)
	}
	return fmt.Sprintf("index error: %s: %v", e.Kind, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

func NewIndexError(kind IndexErrorKind, err error) *IndexError {
	return &IndexError{Kind: kind, Err: err}
}

type GenerationErrorKind string

const (
	GenBackendUnavailable GenerationErrorKind = "backend unavailable"
	GenEmptyResponse      GenerationErrorKind = "empty response"
)

// GenerationError reports a failed call to the text-generation backend.
// Callers map it to a service-unavailable condition.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation error: %s", e.Kind)
	}
	return fmt.Sprintf("generation error: %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(kind GenerationErrorKind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

type RebuildErrorKind string

const (
	RebuildNoDataFetched  RebuildErrorKind = "no data fetched"
	RebuildNoValidRecords RebuildErrorKind = "no valid records"
	RebuildIndexingFailed RebuildErrorKind = "indexing failed"
)

// RebuildError reports an aborted rebuild. The previously published
// dataset and index stay active when one is returned.
type RebuildError struct {
	Kind RebuildErrorKind
	Err  error
}

func (e *RebuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rebuild failed: %s", e.Kind)
	}
	return fmt.Sprintf("rebuild failed: %s: %v", e.Kind, e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

func NewRebuildError(kind RebuildErrorKind, err error) *RebuildError {
	return &RebuildError{Kind: kind, Err: err}
}
