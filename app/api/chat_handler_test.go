package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/rebuild"
	"pulse/types"
)

type fakeResponder struct {
	answer string
	chunks []types.Chunk
	err    error
}

func (f *fakeResponder) Respond(context.Context, string, string) (string, []types.Chunk, error) {
	return f.answer, f.chunks, f.err
}

type fakeRebuilder struct {
	err error
}

func (f *fakeRebuilder) Run(context.Context) error { return f.err }

func newTestApp(responder Responder, rebuilder Rebuilder) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/chat", NewChatHandler(responder).HandleChat)
	app.Post("/rebuild", NewRebuildHandler(rebuilder).HandleRebuild)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleChatReturnsAnswerAndSources(t *testing.T) {
	end := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	responder := &fakeResponder{
		answer: "- **Jazz Night**: tonight!",
		chunks: []types.Chunk{{Title: "Jazz Night", City: "Paris", DateEnd: &end}},
	}
	app := newTestApp(responder, &fakeRebuilder{})

	resp := postJSON(t, app, "/chat", `{"question": "what is on?", "model_size": "small"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body types.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "- **Jazz Night**: tonight!", body.Answer)
	assert.Contains(t, body.Sources, "--- Sources ---")
	assert.Contains(t, body.Sources, "- Jazz Night (Paris, ends: 2026-06-01T20:00:00Z)")
}

func TestHandleChatRejectsBadJSON(t *testing.T) {
	app := newTestApp(&fakeResponder{}, &fakeRebuilder{})

	resp := postJSON(t, app, "/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleChatValidation(t *testing.T) {
	app := newTestApp(&fakeResponder{}, &fakeRebuilder{})

	cases := map[string]string{
		"missing question":  `{"model_size": "small"}`,
		"question too long": `{"question": "` + strings.Repeat("x", 501) + `", "model_size": "small"}`,
		"bad model size":    `{"question": "ok?", "model_size": "medium"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, app, "/chat", body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
}

func TestHandleChatBackendOutageIsCleanServiceUnavailable(t *testing.T) {
	responder := &fakeResponder{err: types.NewGenerationError(types.GenBackendUnavailable, errors.New("socket timeout"))}
	app := newTestApp(responder, &fakeRebuilder{})

	resp := postJSON(t, app, "/chat", `{"question": "ok?", "model_size": "large"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "service temporarily unavailable")
	assert.NotContains(t, string(raw), "socket timeout")
}

func TestHandleRebuildBusy(t *testing.T) {
	app := newTestApp(&fakeResponder{}, &fakeRebuilder{err: rebuild.ErrRebuildInProgress})

	resp := postJSON(t, app, "/rebuild", `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleRebuildFailureKeepsStageDetail(t *testing.T) {
	app := newTestApp(&fakeResponder{}, &fakeRebuilder{err: types.NewRebuildError(types.RebuildNoValidRecords, nil)})

	resp := postJSON(t, app, "/rebuild", `{}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "no valid records")
}

func TestHandleRebuildSuccess(t *testing.T) {
	app := newTestApp(&fakeResponder{}, &fakeRebuilder{})

	resp := postJSON(t, app, "/rebuild", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
