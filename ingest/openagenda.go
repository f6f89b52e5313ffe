package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"pulse/types"
)

// EventSource delivers the raw corpus for a rebuild. An empty result is
// a valid outcome, not an error; transport or auth failures return one.
type EventSource interface {
	FetchAll(ctx context.Context) ([]types.RawRecord, error)
}

const openAgendaPageSize = 20

// OpenAgendaClient pulls events from the OpenAgenda API around a fixed
// point within a sliding one-year window, paginating internally.
type OpenAgendaClient struct {
	baseURL  string
	apiKey   string
	lat, lng float64
	radiusKM int
	client   *http.Client
	logger   *slog.Logger
}

func NewOpenAgendaClient() *OpenAgendaClient {
	uid := os.Getenv("OPENAGENDA_UID")
	if uid == "" {
		uid = "82290100"
	}
	return &OpenAgendaClient{
		baseURL:  fmt.Sprintf("https://api.openagenda.com/v2/agendas/%s/events", uid),
		apiKey:   os.Getenv("OPENAGENDA_API_KEY"),
		lat:      48.8566,
		lng:      2.3522,
		radiusKM: 20,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
}

type agendaEvent struct {
	UID             json.Number       `json:"uid"`
	Title           map[string]string `json:"title"`
	Description     map[string]string `json:"description"`
	LongDescription map[string]string `json:"longDescription"`
	Location        struct {
		City string `json:"city"`
	} `json:"location"`
	Timings []struct {
		End string `json:"end"`
	} `json:"timings"`
}

type agendaPage struct {
	Events []agendaEvent `json:"events"`
}

// FetchAll walks the paginated event listing until a short or empty
// page. The window spans one year back to one year ahead.
func (c *OpenAgendaClient) FetchAll(ctx context.Context) ([]types.RawRecord, error) {
	dateStart := time.Now().AddDate(0, 0, -365).Format("2006-01-02")
	dateEnd := time.Now().AddDate(0, 0, 365).Format("2006-01-02")

	var records []types.RawRecord
	for offset := 0; ; {
		page, err := c.fetchPage(ctx, offset, dateStart, dateEnd)
		if err != nil {
			return nil, err
		}
		if len(page.Events) == 0 {
			break
		}
		for _, ev := range page.Events {
			records = append(records, toRawRecord(ev))
		}
		if len(page.Events) < openAgendaPageSize {
			break
		}
		offset += len(page.Events)
	}

	c.logger.Info("openagenda fetch finished", "events", len(records))
	return records, nil
}

func (c *OpenAgendaClient) fetchPage(ctx context.Context, offset int, dateStart, dateEnd string) (*agendaPage, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("lat", strconv.FormatFloat(c.lat, 'f', 4, 64))
	params.Set("lng", strconv.FormatFloat(c.lng, 'f', 4, 64))
	params.Set("dist", strconv.Itoa(c.radiusKM))
	params.Set("timings[gte]", dateStart)
	params.Set("timings[lte]", dateEnd)
	params.Set("detailed", "1")
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openagenda request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openagenda API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var page agendaPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}

func toRawRecord(ev agendaEvent) types.RawRecord {
	title := ev.Title["fr"]
	if title == "" {
		title = "Untitled event"
	}
	description := ev.LongDescription["fr"]
	if description == "" {
		description = ev.Description["fr"]
	}

	rec := types.RawRecord{
		ID:          ev.UID.String(),
		Title:       title,
		Description: description,
		City:        ev.Location.City,
	}
	if len(ev.Timings) > 0 && ev.Timings[0].End != "" {
		if t, err := time.Parse(time.RFC3339, ev.Timings[0].End); err == nil {
			rec.DateEnd = &t
		}
	}
	return rec
}
