package pause

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFile(t *testing.T) {
	ctx := context.Background()
	history := NewMemoryHistory()

	event := Event{
		ID:            uuid.New(),
		URL:           "https://a/login",
		Reason:        "Password field detected",
		Rule:          "password_field",
		InputProvided: true,
		Timestamp:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Waited:        1500 * time.Millisecond,
	}
	require.NoError(t, history.Record(ctx, event))

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, SaveFile(ctx, history, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, true, raw[0]["input_provided"])
	assert.Equal(t, "password_field", raw[0]["rule"])
	assert.NotContains(t, raw[0], "input")
}

func TestSaveFile_EmptyHistoryWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	require.NoError(t, SaveFile(context.Background(), NewMemoryHistory(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
