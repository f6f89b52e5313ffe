package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/types"
)

func TestNormalizeFiltersShortDescriptions(t *testing.T) {
	rows := []types.RawRecord{
		{ID: "1", Title: "Concert", Description: "A 30-character description.", City: "Paris"},
		{ID: "2", Title: "Expo", Description: "too short"},
		{ID: "3", Title: "Play", Description: ""},
		{ID: "4", Title: "Edge", Description: strings.Repeat("x", MinDescriptionLen)},
	}

	records := Normalize(rows)

	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].ID)
}

func TestNormalizeDeduplicatesKeepingFirst(t *testing.T) {
	rows := []types.RawRecord{
		{ID: "1", Title: "First", Description: strings.Repeat("a", 40)},
		{ID: "1", Title: "Second", Description: strings.Repeat("b", 40)},
		{ID: "2", Title: "Other", Description: strings.Repeat("c", 40)},
	}

	records := Normalize(rows)

	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].Title)
	assert.Equal(t, "2", records[1].ID)
}

func TestNormalizeComposedText(t *testing.T) {
	rows := []types.RawRecord{
		{ID: "1", Title: "Jazz Night", Description: "An evening of live jazz music.", City: "Lyon"},
	}

	records := Normalize(rows)

	require.Len(t, records, 1)
	assert.Equal(t, "Title: Jazz Night. Description: An evening of live jazz music.. City: Lyon", records[0].ComposedText)
}

func TestNormalizeDropsMissingID(t *testing.T) {
	rows := []types.RawRecord{
		{ID: "", Title: "No id", Description: strings.Repeat("a", 40)},
	}

	assert.Empty(t, Normalize(rows))
}

func TestNormalizeEmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}
