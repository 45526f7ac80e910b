package pause

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event records that a pause happened. The collected value is never stored,
// only whether one was provided.
type Event struct {
	ID            uuid.UUID     `json:"id"`
	URL           string        `json:"url"`
	Reason        string        `json:"reason"`
	Rule          string        `json:"rule"`
	InputProvided bool          `json:"input_provided"`
	Timestamp     time.Time     `json:"timestamp"`
	Waited        time.Duration `json:"waited_ns"`
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}

type MemoryHistory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) Record(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return nil
}

func (m *MemoryHistory) List(_ context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Event(nil), m.events...), nil
}

// SaveFile writes the recorder's history to path as indented JSON.
func SaveFile(ctx context.Context, rec Recorder, path string) error {
	events, err := rec.List(ctx)
	if err != nil {
		return fmt.Errorf("list pause history: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pause history: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write pause history: %w", err)
	}

	return nil
}
