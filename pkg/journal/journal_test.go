package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(t.Context(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j, _ := openTestJournal(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(t.Context(), Entry{
		Operation: "set",
		Requested: "openrouter/openai/gpt-4o",
		Previous:  "openrouter/anthropic/claude-sonnet-4",
		Active:    "openrouter/openai/gpt-4o",
		Outcome:   "succeeded",
		Source:    "gateway",
		CreatedAt: base,
	}))
	require.NoError(t, j.Record(t.Context(), Entry{
		Operation: "set",
		Requested: "openrouter/bogus/model",
		Previous:  "openrouter/openai/gpt-4o",
		Active:    "openrouter/openai/gpt-4o",
		Outcome:   "rolled_back",
		Error:     "model rejected",
		CreatedAt: base.Add(time.Minute),
	}))

	entries, err := j.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "rolled_back", entries[0].Outcome)
	assert.Equal(t, "model rejected", entries[0].Error)
	assert.Empty(t, entries[0].Source)
	assert.Equal(t, "succeeded", entries[1].Outcome)
	assert.Equal(t, "gateway", entries[1].Source)
	assert.True(t, base.Equal(entries[1].CreatedAt))

	_, err = uuid.Parse(entries[0].ID)
	assert.NoError(t, err)
}

func TestRecentOrdersWithinOneSecond(t *testing.T) {
	t.Parallel()

	j, _ := openTestJournal(t)
	whole := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	later := whole.Add(500 * time.Millisecond)

	require.NoError(t, j.Record(t.Context(), Entry{Operation: "set", Requested: "later", Outcome: "succeeded", CreatedAt: later}))
	require.NoError(t, j.Record(t.Context(), Entry{Operation: "set", Requested: "whole", Outcome: "succeeded", CreatedAt: whole}))

	entries, err := j.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "later", entries[0].Requested)
	assert.True(t, later.Equal(entries[0].CreatedAt))
	assert.Equal(t, "whole", entries[1].Requested)
	assert.True(t, whole.Equal(entries[1].CreatedAt))
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	j, _ := openTestJournal(t)
	for range 5 {
		require.NoError(t, j.Record(t.Context(), Entry{Operation: "pin", Outcome: "succeeded"}))
	}

	entries, err := j.Recent(t.Context(), 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = j.Recent(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestReopenKeepsEntries(t *testing.T) {
	t.Parallel()

	j, path := openTestJournal(t)
	require.NoError(t, j.Record(t.Context(), Entry{ID: "fixed-id", Operation: "revert", Outcome: "succeeded"}))
	require.NoError(t, j.Close())

	reopened, err := Open(t.Context(), path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fixed-id", entries[0].ID)
}
