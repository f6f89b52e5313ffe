package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pulse/types"
)

var datasetColumns = []string{"id", "title", "description", "city", "date_end", "composed_text"}

// WriteDataset persists records as a CSV file, creating the parent
// directory when needed. The write goes through a temporary file and a
// rename so a crash never leaves a half-written dataset at path.
func WriteDataset(path string, records []types.EventRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(datasetColumns); err != nil {
		tmp.Close()
		return err
	}
	for _, rec := range records {
		dateEnd := ""
		if rec.DateEnd != nil {
			dateEnd = rec.DateEnd.Format(time.RFC3339)
		}
		row := []string{rec.ID, rec.Title, rec.Description, rec.City, dateEnd, rec.ComposedText}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// PromoteDataset moves a staged dataset over the published one.
func PromoteDataset(stagedPath, livePath string) error {
	return os.Rename(stagedPath, livePath)
}

// ReadDataset loads a previously persisted dataset. A missing file,
// unreadable content or missing required columns is a DataLoadError; a
// file holding only the header yields an empty slice and no error.
func ReadDataset(path string) ([]types.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &types.DataLoadError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &types.DataLoadError{Path: path, Err: fmt.Errorf("missing header row")}
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, name := range datasetColumns {
		if _, ok := cols[name]; !ok {
			return nil, &types.DataLoadError{Path: path, Err: fmt.Errorf("missing column %q", name)}
		}
	}

	records := make([]types.EventRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := types.EventRecord{
			ID:           row[cols["id"]],
			Title:        row[cols["title"]],
			Description:  row[cols["description"]],
			City:         row[cols["city"]],
			ComposedText: row[cols["composed_text"]],
		}
		if raw := row[cols["date_end"]]; raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, &types.DataLoadError{Path: path, Err: fmt.Errorf("bad date_end %q: %w", raw, err)}
			}
			rec.DateEnd = &t
		}
		records = append(records, rec)
	}
	return records, nil
}
