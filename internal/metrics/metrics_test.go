package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePause(t *testing.T) {
	m := New()

	m.ObservePause("password_field", 2*time.Second, nil)
	m.ObservePause("password_field", time.Second, errors.New("closed"))
	m.ObservePause("captcha", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauses.WithLabelValues("password_field", "resumed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauses.WithLabelValues("password_field", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pauses.WithLabelValues("captcha", "resumed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePause("x", time.Second, nil)
		m.ObserveTask("completed")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveTask("completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agent_tasks_total{status="completed"} 1`)
}
