package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/tabscout/internal/ax"
	"github.com/bryanchriswhite/tabscout/internal/ax/axtest"
	"github.com/bryanchriswhite/tabscout/internal/config"
	"github.com/bryanchriswhite/tabscout/internal/events"
	"github.com/bryanchriswhite/tabscout/internal/tracker"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

type nopSource struct{}

func (nopSource) Start(chan<- events.Notification) error { return nil }
func (nopSource) Attach(int) error                       { return nil }
func (nopSource) Detach(int)                             {}
func (nopSource) Stop()                                  {}

type fixture struct {
	platform *axtest.Platform
	tracker  *tracker.Manager
	server   *Server
	editor   *axtest.Element
	notes    *axtest.Element
}

func newFixture(t *testing.T, src events.Source) *fixture {
	t.Helper()
	p := axtest.NewPlatform()
	tab := axtest.Tab("README")
	editor := axtest.Window("Editor", tab).Set(ax.AttrTabs, []*axtest.Element{tab})
	notes := axtest.Window("Groceries").Set(ax.AttrFocused, true)
	p.AddApp(ax.App{PID: 1, ID: "org.example.editor", Name: "Editor"}, editor)
	p.AddApp(ax.App{PID: 2, ID: "org.example.notes", Name: "Notes"}, notes)

	tr := tracker.New(tracker.Options{Config: config.Defaults(), Platform: p, Source: src})
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(tr.Stop)

	return &fixture{platform: p, tracker: tr, server: NewServer(tr, nil), editor: editor, notes: notes}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) id(t *testing.T, e *axtest.Element) string {
	t.Helper()
	for _, r := range f.tracker.Cache().All() {
		if r.NodeKey == e.Key() {
			return r.StableID
		}
	}
	t.Fatalf("no record for %s", e.Key())
	return ""
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListWindows(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, "GET", "/api/windows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]window.Record](t, rec), 3)

	rec = f.do(t, "GET", "/api/windows?type=tab", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tabs := decode[[]window.Record](t, rec)
	require.Len(t, tabs, 1)
	assert.Equal(t, "README", tabs[0].Title)

	rec = f.do(t, "GET", "/api/windows?type=window&app=org.example.notes", nil)
	assert.Len(t, decode[[]window.Record](t, rec), 1)

	rec = f.do(t, "GET", "/api/windows?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWindow(t *testing.T) {
	f := newFixture(t, nil)
	id := f.id(t, f.editor)

	rec := f.do(t, "GET", "/api/windows/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Editor", decode[window.Record](t, rec).Title)

	rec = f.do(t, "GET", "/api/windows/win-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFocusedWindow(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, "GET", "/api/windows/focused", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.id(t, f.notes), decode[window.Record](t, rec).StableID)

	rec = f.do(t, "POST", "/api/windows/"+f.id(t, f.editor)+"/focus", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/windows/focused", nil)
	assert.Equal(t, f.id(t, f.editor), decode[window.Record](t, rec).StableID)
}

func TestLiveTabs(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, "GET", "/api/windows/"+f.id(t, f.editor)+"/tabs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]window.Record](t, rec), 1)

	rec = f.do(t, "GET", "/api/windows/"+f.id(t, f.notes)+"/tabs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestActions(t *testing.T) {
	f := newFixture(t, nil)
	id := f.id(t, f.editor)

	rec := f.do(t, "POST", "/api/windows/"+id+"/explode", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "POST", "/api/windows/"+id+"/move", map[string]float64{"x": 50, "y": 60})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50.0, decode[window.Record](t, rec).Frame.X)

	rec = f.do(t, "POST", "/api/windows/"+id+"/move", map[string]float64{"x": 50})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/windows/"+id+"/resize", map[string]float64{"width": 640, "height": 480})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 640.0, decode[window.Record](t, rec).Frame.Width)

	rec = f.do(t, "POST", "/api/windows/"+id+"/resize", map[string]float64{"width": -1, "height": 480})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "POST", "/api/windows/"+id+"/select", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, "POST", "/api/windows/"+id+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, "GET", "/api/windows/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaleWindowIsGone(t *testing.T) {
	f := newFixture(t, nil)
	id := f.id(t, f.notes)
	f.notes.Stale = true

	rec := f.do(t, "POST", "/api/windows/"+id+"/raise", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestDiscoverAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, "POST", "/api/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[tracker.Result](t, rec)
	assert.Equal(t, 2, res.Applications)
	assert.Equal(t, 2, res.Windows)

	rec = f.do(t, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])

	rec = f.do(t, "GET", "/api/debug/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "cache: 3 records"))

	rec = f.do(t, "GET", "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(8089), decode[map[string]any](t, rec)["server_port"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "OPTIONS", "/api/windows", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventsWithoutLiveUpdates(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "/api/events", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEventsStreamStartsWithFocusedWindow(t *testing.T) {
	f := newFixture(t, nopSource{})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.KindFocusChanged, ev.Kind)
	assert.Equal(t, f.id(t, f.notes), ev.ID)
	require.NotNil(t, ev.Record)
	assert.Equal(t, "Groceries", ev.Record.Title)
}
