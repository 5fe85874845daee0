package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanyard/internal/adapters/decoder"
	"lanyard/internal/adapters/memory"
	"lanyard/internal/ports"
	"lanyard/internal/services/leadgate"
	"lanyard/internal/sessions"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewLeadStore()
	gate := leadgate.New(store, zerolog.Nop())
	registry := sessions.New(gate, func() ports.Decoder { return decoder.NewReplay() }, time.Minute, zerolog.Nop())
	t.Cleanup(registry.Shutdown)
	srv := httptest.NewServer(New(registry, store, zerolog.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, user string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// resultCount polls a session's feed length without failing the test; it is
// safe to call from assert.Eventually's condition goroutine.
func resultCount(baseURL, id string) int {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/sessions/"+id, nil)
	if err != nil {
		return -1
	}
	req.Header.Set(userHeader, "user-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return -1
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return -1
	}
	results, _ := body["results"].([]any)
	return len(results)
}

func TestSessionsRequireIdentity(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, http.MethodPost, srv.URL+"/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestScanRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/sessions", "user-1",
		map[string]any{"frame_rate": 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "active", body["state"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/frames", "user-1",
		map[string]string{"payload": "BEGIN:VCARD\nFN:Jane Doe\nEMAIL:jane@acme.com\nEND:VCARD"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The frame is delivered on the decoder's cadence and persisted
	// asynchronously; poll until the result lands.
	require.Eventually(t, func() bool {
		return resultCount(srv.URL, id) == 1
	}, 2*time.Second, 20*time.Millisecond)

	_, body = do(t, http.MethodGet, srv.URL+"/sessions/"+id, "user-1", nil)
	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, "Jane Doe gespeichert", first["message"])
	counters := body["counters"].(map[string]any)
	assert.EqualValues(t, 1, counters["created"])

	// The lead is readable through the dashboard boundary.
	resp, body = do(t, http.MethodGet, srv.URL+"/leads", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	leads := body["leads"].([]any)
	require.Len(t, leads, 1)
	lead := leads[0].(map[string]any)
	assert.Equal(t, "jane@acme.com", lead["email"])
	assert.Equal(t, false, lead["marketing_consent"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/stop", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Feeding a stopped session conflicts.
	resp, _ = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/frames", "user-1",
		map[string]string{"payload": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, body := do(t, http.MethodPost, srv.URL+"/sessions", "user-1", nil)
	id := body["session_id"].(string)

	resp, body := do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/pause", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paused", body["state"])

	// Pausing twice conflicts.
	resp, _ = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/pause", "user-1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/resume", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", body["state"])

	resp, body = do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/reset", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["results"])

	resp, _ = do(t, http.MethodDelete, srv.URL+"/sessions/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/sessions/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestForeignSessionLooksMissing(t *testing.T) {
	srv := newTestServer(t)
	_, body := do(t, http.MethodPost, srv.URL+"/sessions", "user-1", nil)
	id := body["session_id"].(string)

	resp, _ := do(t, http.MethodGet, srv.URL+"/sessions/"+id, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFrameValidation(t *testing.T) {
	srv := newTestServer(t)
	_, body := do(t, http.MethodPost, srv.URL+"/sessions", "user-1", nil)
	id := body["session_id"].(string)

	resp, _ := do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/frames", "user-1",
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
