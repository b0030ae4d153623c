package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncSessionsSaved()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsSaved))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsSaved))
}

func TestRecordCapture(t *testing.T) {
	m := NewMetrics()
	rep := &report.Report{
		VFS: []report.Outcome{
			report.New("home:/a", report.StatusCaptured),
			report.New("home:/b", report.StatusCaptured),
			report.Failed("home:/c", report.StatusSkipped, errors.New("denied")),
		},
		Processes: []report.Outcome{report.New("w1", report.StatusLossy)},
	}

	m.RecordCapture(rep, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CaptureOutcomes.WithLabelValues("vfs", "captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CaptureOutcomes.WithLabelValues("vfs", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CaptureOutcomes.WithLabelValues("processes", "lossy")))
}

func TestRecordRestore(t *testing.T) {
	m := NewMetrics()
	m.RecordRestore(&report.Report{
		VFS:      []report.Outcome{report.New("home:/a", report.StatusRestored)},
		Settings: []report.Outcome{report.New("theme", report.StatusRestored)},
	}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RestoreOutcomes.WithLabelValues("settings", "restored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsRestored))
	assert.Equal(t, int64(1), m.Snapshot().SessionsRestored)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sessiond_http_requests_total")
	assert.Contains(t, w.Body.String(), "sessiond_uptime_seconds")
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	NewTimer(m, "file", "write").Stop("success")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageCalls.WithLabelValues("file", "write", "success")))

	NewTimer(nil, "file", "write").Stop("success")
}
