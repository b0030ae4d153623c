package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/capture"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/restore"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/serializer"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/settings"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/storage"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router  *gin.Engine
	backend *storage.MemoryBackend
	store   *session.Store
	windows *windows.Manager
	metrics *monitoring.Metrics
	home    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	home := t.TempDir()
	vfs, err := filesystem.New(filesystem.Mount{Name: "home:/", Dir: home})
	require.NoError(t, err)

	prefs, err := settings.NewProvider(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	wm := windows.NewManager().WithMetrics(metrics)
	registry := serializer.NewRegistry()
	require.NoError(t, windows.RegisterPassthrough(registry, wm, "generic", "notes"))

	backend := storage.NewMemoryBackend()
	store := session.NewStore(backend)
	tracer := tracing.New("sessiond-test", nil)
	t.Cleanup(tracer.Close)

	h := NewHandlers(Deps{
		Store:    store,
		Capturer: capture.New(vfs, wm, prefs, registry),
		Restorer: restore.New(vfs, prefs, wm, registry),
		Windows:  wm,
		VFS:      vfs,
		Metrics:  metrics,
		Tracer:   tracer,
	})
	r := gin.New()
	h.Register(r)

	return &fixture{router: r, backend: backend, store: store, windows: wm, metrics: metrics, home: home}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const sampleManifest = `{
  "version": "1.0.0",
  "timestamp": "2024-05-01T10:00:00Z",
  "vfs": {
    "home:/a.txt": {"path": "home:/a.txt", "filename": "a.txt", "size": 2, "isDirectory": false, "isFile": true, "content": "hi"},
    "home:/dir": {"path": "home:/dir", "filename": "dir", "size": 0, "isDirectory": true, "isFile": false, "content": null},
    "home:/dir/b.txt": {"path": "home:/dir/b.txt", "filename": "b.txt", "size": 1, "isDirectory": false, "isFile": true, "content": "b"}
  },
  "processes": [
    {"type": "notes", "windowState": {"id": "w1", "title": "Notes", "position": {"x": 1, "y": 2}, "dimension": {"width": 300, "height": 200}, "maximized": false, "minimized": false, "zIndex": 1}, "appState": {"text": "hello"}, "timestamp": 1714557600000}
  ],
  "settings": {"appearance.theme": "dark"},
  "metadata": {"windowCount": 1, "fileCount": 3}
}`

func importSample(t *testing.T, f *fixture) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/session/import", []byte(sampleManifest))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	sessionID, _ := body["sessionId"].(string)
	require.True(t, strings.HasPrefix(sessionID, "session-"), sessionID)
	return sessionID
}

func TestRoot(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sessiond", decode(t, w)["service"])
}

func TestInspectorRoutesWithoutSession(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/api/session/inspect",
		"/api/session/vfs",
		"/api/session/vfs?path=home:/a.txt",
		"/api/session/vfs/tree",
	} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "No session loaded", decode(t, w)["error"], path)
	}

	w := f.do(t, http.MethodGet, "/api/session/processes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processes":[]}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/session/processes/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Process not found", decode(t, w)["error"])
}

func TestImportRejectsInvalidManifests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "{"},
		{"wrong version", `{"version":"2.0.0","vfs":{},"processes":[]}`},
		{"processes not array", `{"version":"1.0.0","vfs":{},"processes":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/session/import", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
	assert.Nil(t, f.store.Active())
}

func TestImportInspect(t *testing.T) {
	f := newFixture(t)
	importSample(t, f)

	w := f.do(t, http.MethodGet, "/api/session/inspect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode(t, w)
	assert.Equal(t, "1.0.0", overview["version"])
	assert.EqualValues(t, 1, overview["processCount"])
	assert.EqualValues(t, 3, overview["fileCount"])

	w = f.do(t, http.MethodGet, "/api/session/vfs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["vfs"], 3)

	w = f.do(t, http.MethodGet, "/api/session/vfs?path=home:/a.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	node := decode(t, w)["vfs"].(map[string]interface{})
	assert.Equal(t, "hi", node["content"])

	w = f.do(t, http.MethodGet, "/api/session/vfs?path=home:/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Path not found", decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/api/session/vfs/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tree := decode(t, w)["tree"].(map[string]interface{})
	assert.Contains(t, tree, "a.txt")
	assert.Contains(t, tree["dir"], "b.txt")

	w = f.do(t, http.MethodGet, "/api/session/processes?type=notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	procs := decode(t, w)["processes"].([]interface{})
	require.Len(t, procs, 1)
	assert.Equal(t, map[string]interface{}{"text": "hello"}, procs[0].(map[string]interface{})["appState"])

	w = f.do(t, http.MethodGet, "/api/session/processes", nil)
	summary := decode(t, w)["processes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Notes", summary["title"])
	assert.Equal(t, true, summary["hasAppState"])

	w = f.do(t, http.MethodGet, "/api/session/processes/0", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/session/processes/first", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportListDelete(t *testing.T) {
	f := newFixture(t)
	sessionID := importSample(t, f)

	w := f.do(t, http.MethodGet, "/api/session/export/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	m, err := manifest.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, m.VFS, 3)

	w = f.do(t, http.MethodGet, "/api/session/export/"+sessionID+"?format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, w.Body.String(), "version:")

	w = f.do(t, http.MethodGet, "/api/session/export/"+sessionID+"?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/session/export/session-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Session not found", decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/api/session/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode(t, w)["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].(map[string]interface{})["id"])

	w = f.do(t, http.MethodDelete, "/api/session/delete/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/api/session/delete/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureAndRestore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.home, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.home, "docs", "todo.txt"), []byte("ship it"), 0o644))

	_, err := f.windows.Open(context.Background(), windows.OpenRequest{
		AppType:  "notes",
		Title:    "Todo",
		AppState: map[string]interface{}{"cursor": float64(4)},
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/session/capture", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	sessionID := body["sessionId"].(string)
	require.NotNil(t, body["report"])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SessionsSaved))

	// wipe the live desktop, then bring it back
	require.NoError(t, os.RemoveAll(filepath.Join(f.home, "docs")))
	f.windows.CloseAll()

	w = f.do(t, http.MethodPost, "/api/session/restore/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	data, err := os.ReadFile(filepath.Join(f.home, "docs", "todo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ship it", string(data))

	views := f.windows.Views()
	require.Len(t, views, 1)
	assert.Equal(t, "Todo", views[0].Title)
	assert.Equal(t, map[string]interface{}{"cursor": float64(4)}, views[0].AppState)

	w = f.do(t, http.MethodPost, "/api/session/restore/"+sessionID+"?replace=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.windows.Views(), 1)

	w = f.do(t, http.MethodPost, "/api/session/restore/session-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWindowRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/windows", []byte(`{"appType":"notes","title":"Scratch"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	win := decode(t, w)["window"].(map[string]interface{})
	windowID := win["id"].(string)
	assert.Equal(t, true, win["focused"])

	w = f.do(t, http.MethodPost, "/api/windows/"+windowID+"/state", []byte(`{"title":"Renamed","minimized":true}`))
	require.Equal(t, http.StatusOK, w.Code)
	win = decode(t, w)["window"].(map[string]interface{})
	assert.Equal(t, "Renamed", win["title"])
	assert.Equal(t, true, win["minimized"])

	w = f.do(t, http.MethodPost, "/api/windows/"+windowID+"/focus", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/windows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["windows"], 1)

	w = f.do(t, http.MethodPost, "/api/windows/nope/state", []byte(`{"title":"x"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/api/windows", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/windows/"+windowID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/api/windows/"+windowID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.home, "a.txt"), []byte("abc"), 0o644))

	w := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	mounts := body["vfs"].([]interface{})
	require.Len(t, mounts, 1)
	assert.Equal(t, "home:/", mounts[0].(map[string]interface{})["mount"])

	w = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = f.do(t, http.MethodGet, "/metrics/json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&manifest.ValidationError{Reason: "bad"}, http.StatusBadRequest},
		{session.ErrNotFound, http.StatusNotFound},
		{windows.ErrNotFound, http.StatusNotFound},
		{&session.CorruptDataError{ID: "x", Err: assert.AnError}, http.StatusUnprocessableEntity},
		{&session.StorageError{Op: "write", Err: assert.AnError}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCorruptRecordIsUnprocessable(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Write(context.Background(), "broken", []byte(`{"version":"1.0.0","processes":{},"vfs":{}}`)))

	store := session.NewStore(backend)
	_, err := store.Load(context.Background(), "broken")
	var corrupt *session.CorruptDataError
	require.ErrorAs(t, err, &corrupt)
	assert.True(t, manifest.IsValidationError(err), "decoder error stays wrapped")
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(err))

	f := newFixture(t)
	require.NoError(t, f.backend.Write(context.Background(), "broken", []byte(`{"version":"1.0.0","processes":{},"vfs":{}}`)))
	w := f.do(t, http.MethodGet, "/api/session/export/broken", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/session/restore/broken", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}
