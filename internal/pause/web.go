package pause

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// WebInput collects pause input over HTTP. The agent blocks in GetInput while
// an operator polls GET /pause and answers with POST /pause/input.
type WebInput struct {
	mu      sync.Mutex
	pending *pendingInput
}

type pendingInput struct {
	req   InputRequest
	since time.Time
	reply chan string
}

type PauseStatus struct {
	Paused  bool      `json:"paused"`
	ID      string    `json:"id,omitempty"`
	Rule    string    `json:"rule,omitempty"`
	Message string    `json:"message,omitempty"`
	URL     string    `json:"url,omitempty"`
	Since   time.Time `json:"since,omitempty"`
}

type submitRequest struct {
	Value *string `json:"value"`
}

func NewWebInput() *WebInput {
	return &WebInput{}
}

func (w *WebInput) GetInput(ctx context.Context, req InputRequest) (string, error) {
	p := &pendingInput{
		req:   req,
		since: time.Now(),
		reply: make(chan string, 1),
	}

	w.mu.Lock()
	if w.pending != nil {
		w.mu.Unlock()

		return "", ErrAlreadyPaused
	}
	w.pending = p
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.pending == p {
			w.pending = nil
		}
		w.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case value := <-p.reply:
		return value, nil
	}
}

// Submit answers the pending pause.
func (w *WebInput) Submit(value string) error {
	w.mu.Lock()
	p := w.pending
	w.pending = nil
	w.mu.Unlock()

	if p == nil {
		return ErrNotPaused
	}

	p.reply <- value

	return nil
}

func (w *WebInput) Status() PauseStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending == nil {
		return PauseStatus{}
	}

	return PauseStatus{
		Paused:  true,
		ID:      w.pending.req.ID.String(),
		Rule:    w.pending.req.Rule,
		Message: w.pending.req.Message,
		URL:     w.pending.req.URL,
		Since:   w.pending.since,
	}
}

// Routes mounts the pause endpoints on r.
func (w *WebInput) Routes(r chi.Router) {
	r.Get("/pause", w.handleStatus)
	r.Post("/pause/input", w.handleSubmit)
}

func (w *WebInput) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, w.Status())
}

func (w *WebInput) handleSubmit(rw http.ResponseWriter, r *http.Request) {
	var body submitRequest

	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64<<10)).Decode(&body); err != nil || body.Value == nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "body must be {\"value\": string}"})

		return
	}

	if err := w.Submit(*body.Value); err != nil {
		if errors.Is(err, ErrNotPaused) {
			writeJSON(rw, http.StatusConflict, map[string]string{"error": err.Error()})

			return
		}

		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
