package server

import (
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/pause"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouterServesMetricsAndPause(t *testing.T) {
	m := metrics.New()
	m.ObserveTask("completed")

	web := pause.NewWebInput()
	srv := httptest.NewServer(NewRouter(web, m, zap.NewNop()))
	t.Cleanup(srv.Close)

	client := srv.Client()

	resp, err := client.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `agent_tasks_total{status="completed"} 1`)

	got := make(chan string, 1)

	go func() {
		value, _ := web.GetInput(context.Background(), pause.InputRequest{ID: uuid.New(), Rule: "captcha"})
		got <- value
	}()

	require.Eventually(t, func() bool { return web.Status().Paused }, time.Second, 5*time.Millisecond)

	resp, err = client.Post(srv.URL+"/pause/input", "application/json", strings.NewReader(`{"value":"solved"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "solved", <-got)
}

func TestRouterWithoutWebInput(t *testing.T) {
	srv := httptest.NewServer(NewRouter(nil, metrics.New(), zap.NewNop()))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/pause")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
