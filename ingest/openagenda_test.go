package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *OpenAgendaClient {
	return &OpenAgendaClient{
		baseURL:  baseURL,
		apiKey:   "test-key",
		lat:      48.8566,
		lng:      2.3522,
		radiusKM: 20,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   slog.Default(),
	}
}

func eventJSON(uid int) string {
	return fmt.Sprintf(`{
		"uid": %d,
		"title": {"fr": "Événement %d"},
		"longDescription": {"fr": "Une description suffisamment longue pour l'indexation."},
		"location": {"city": "Paris"},
		"timings": [{"end": "2026-06-01T20:00:00Z"}]
	}`, uid, uid)
}

func TestFetchAllPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var events []string
		count := 0
		switch offset {
		case 0:
			count = openAgendaPageSize
		case openAgendaPageSize:
			count = 3
		}
		for i := 0; i < count; i++ {
			events = append(events, eventJSON(offset+i))
		}
		fmt.Fprintf(w, `{"events": [%s]}`, strings.Join(events, ","))
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, openAgendaPageSize+3)

	assert.Equal(t, "0", records[0].ID)
	assert.Equal(t, "Événement 0", records[0].Title)
	assert.Equal(t, "Paris", records[0].City)
	require.NotNil(t, records[0].DateEnd)
	assert.Equal(t, 2026, records[0].DateEnd.Year())
}

func TestFetchAllEmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"events": []}`)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchAllTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestFetchAllRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"events": []}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).FetchAll(ctx)
	require.Error(t, err)
}

func TestToRawRecordFallbacks(t *testing.T) {
	rec := toRawRecord(agendaEvent{
		Description: map[string]string{"fr": "Description courte"},
	})
	assert.Equal(t, "Untitled event", rec.Title)
	assert.Equal(t, "Description courte", rec.Description)
	assert.Nil(t, rec.DateEnd)
}
