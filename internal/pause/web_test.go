package pause

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebServer(t *testing.T, input *WebInput) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	input.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func getStatus(t *testing.T, srv *httptest.Server) PauseStatus {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + "/pause")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status PauseStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))

	return status
}

func postInput(t *testing.T, srv *httptest.Server, body string) int {
	t.Helper()

	resp, err := srv.Client().Post(srv.URL+"/pause/input", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode
}

func TestWebInput_RoundTrip(t *testing.T) {
	input := NewWebInput()
	srv := newWebServer(t, input)

	assert.False(t, getStatus(t, srv).Paused)

	req := InputRequest{ID: uuid.New(), Rule: "two_factor_auth", Message: "Enter the code", URL: "https://a/2fa"}
	result := make(chan string, 1)
	errc := make(chan error, 1)

	go func() {
		value, err := input.GetInput(context.Background(), req)
		result <- value
		errc <- err
	}()

	require.Eventually(t, func() bool {
		return input.Status().Paused
	}, time.Second, 5*time.Millisecond)

	status := getStatus(t, srv)
	assert.True(t, status.Paused)
	assert.Equal(t, req.ID.String(), status.ID)
	assert.Equal(t, "two_factor_auth", status.Rule)
	assert.Equal(t, "Enter the code", status.Message)
	assert.Equal(t, "https://a/2fa", status.URL)

	assert.Equal(t, http.StatusNoContent, postInput(t, srv, `{"value":"123456"}`))

	assert.Equal(t, "123456", <-result)
	require.NoError(t, <-errc)
	assert.False(t, getStatus(t, srv).Paused)
}

func TestWebInput_SubmitWithoutPause(t *testing.T) {
	srv := newWebServer(t, NewWebInput())

	assert.Equal(t, http.StatusConflict, postInput(t, srv, `{"value":"x"}`))
}

func TestWebInput_BadBody(t *testing.T) {
	srv := newWebServer(t, NewWebInput())

	assert.Equal(t, http.StatusBadRequest, postInput(t, srv, `not json`))
	assert.Equal(t, http.StatusBadRequest, postInput(t, srv, `{}`))
}

func TestWebInput_ContextCancelClearsPending(t *testing.T) {
	input := NewWebInput()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := input.GetInput(ctx, InputRequest{Rule: "x"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, input.Status().Paused)
	assert.ErrorIs(t, input.Submit("late"), ErrNotPaused)
}

func TestWebInput_RejectsSecondPause(t *testing.T) {
	input := NewWebInput()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = input.GetInput(ctx, InputRequest{Rule: "first"})
	}()

	require.Eventually(t, func() bool {
		return input.Status().Paused
	}, time.Second, 5*time.Millisecond)

	_, err := input.GetInput(context.Background(), InputRequest{Rule: "second"})
	assert.ErrorIs(t, err, ErrAlreadyPaused)

	cancel()
	<-done
}
