package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pulse/types"
)

// MinDescriptionLen is the minimum description length in runes for a row
// to be kept. Shorter descriptions carry too little signal to embed.
const MinDescriptionLen = 25

// Normalize turns raw source rows into clean event records: rows with a
// missing or too-short description are dropped, duplicate ids keep the
// first occurrence, and the text used for embedding is composed from
// title, description and city. Filtering everything away yields an
// empty slice, not an error; callers decide whether that is fatal.
func Normalize(rows []types.RawRecord) []types.EventRecord {
	records := make([]types.EventRecord, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		desc := strings.TrimSpace(row.Description)
		if utf8.RuneCountInString(desc) <= MinDescriptionLen {
			continue
		}
		if row.ID == "" {
			continue
		}
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}

		records = append(records, types.EventRecord{
			ID:           row.ID,
			Title:        row.Title,
			Description:  desc,
			City:         row.City,
			DateEnd:      row.DateEnd,
			ComposedText: composeText(row.Title, desc, row.City),
		})
	}
	return records
}

func composeText(title, description, city string) string {
	return fmt.Sprintf("Title: %s. Description: %s. City: %s", title, description, city)
}
