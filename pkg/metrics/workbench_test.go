package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWorkbenchMetrics_Upload(t *testing.T) {
	m := NewWorkbenchMetrics("test")

	m.StartUpload()
	m.FinishUpload(150*time.Millisecond, nil)
	m.StartUpload()
	m.FinishUpload(time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadTotal.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.uploadInFlight))
}

func TestWorkbenchMetrics_SessionsAndSubmit(t *testing.T) {
	m := NewWorkbenchMetrics("test")

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveSubmit("create", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submitTotal.WithLabelValues("create", "success")))
}

func TestWorkbenchMetrics_Handler(t *testing.T) {
	m := NewWorkbenchMetrics("test")
	m.SessionOpened()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tcg_workbench_form_sessions_open"))
}
