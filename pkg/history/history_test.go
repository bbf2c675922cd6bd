package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "model_history.json"))
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	state := s.Read()

	assert.Empty(t, state.Stack)
	assert.Nil(t, state.LastKnownGood)
}

func TestReadCorruptFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	state := s.Read()
	assert.Empty(t, state.Stack)

	// The store keeps working on top of a corrupt file.
	require.NoError(t, s.Push("openrouter/a"))
	assert.Equal(t, []string{"openrouter/a"}, s.Read().Stack)
}

func TestPushKeepsTenMostRecent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for i := range 12 {
		require.NoError(t, s.Push(fmt.Sprintf("v.%d", i)))
	}

	stack := s.Read().Stack
	require.Len(t, stack, 10)
	assert.Equal(t, "v.2", stack[0])
	assert.Equal(t, "v.11", stack[9])
	for i, id := range stack {
		assert.Equal(t, fmt.Sprintf("v.%d", i+2), id)
	}
}

func TestPushBoundHolds(t *testing.T) {
	t.Parallel()

	for total := 10; total <= 25; total += 5 {
		t.Run(fmt.Sprintf("%d pushes", total), func(t *testing.T) {
			t.Parallel()

			s := newTestStore(t)
			for i := range total {
				require.NoError(t, s.Push(fmt.Sprintf("m.%d", i)))
			}

			stack := s.Read().Stack
			require.Len(t, stack, 10)
			assert.Equal(t, fmt.Sprintf("m.%d", total-10), stack[0])
			assert.Equal(t, fmt.Sprintf("m.%d", total-1), stack[9])
		})
	}
}

func TestWithMaxEntries(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "h.json"), WithMaxEntries(3))
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Push(id))
	}

	assert.Equal(t, []string{"b", "c", "d"}, s.Read().Stack)
}

func TestPopSteps(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, id := range []string{"sonnet", "deepseek", "opus"} {
		require.NoError(t, s.Push(id))
	}

	target, err := s.PopSteps(2)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", target)
	assert.Equal(t, []string{"sonnet"}, s.Read().Stack)
}

func TestPopStepsMoreThanAvailable(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, id := range []string{"sonnet", "deepseek", "opus"} {
		require.NoError(t, s.Push(id))
	}

	target, err := s.PopSteps(7)
	require.NoError(t, err)

	assert.Equal(t, "sonnet", target)
	assert.Empty(t, s.Read().Stack)
}

func TestPopStepsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.PopSteps(1)
	require.ErrorIs(t, err, ErrEmptyHistory)
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestPopStepsInvalid(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Push("a"))

	_, err := s.PopSteps(0)
	require.ErrorIs(t, err, ErrInvalidSteps)
	assert.Equal(t, []string{"a"}, s.Read().Stack)
}

func TestStatePopIsPure(t *testing.T) {
	t.Parallel()

	state := State{Stack: []string{"a", "b", "c"}}

	target, rest, err := state.Pop(1)
	require.NoError(t, err)

	assert.Equal(t, "c", target)
	assert.Equal(t, []string{"a", "b"}, rest.Stack)
	assert.Equal(t, []string{"a", "b", "c"}, state.Stack)
}

func TestPinDoesNotTouchStack(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Push("a"))

	_, ok := s.Pinned()
	assert.False(t, ok)

	require.NoError(t, s.Pin("openrouter/good"))

	pinned, ok := s.Pinned()
	require.True(t, ok)
	assert.Equal(t, "openrouter/good", pinned)
	assert.Equal(t, []string{"a"}, s.Read().Stack)
}

func TestFileFormat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Push("openrouter/a"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"stack":["openrouter/a"],"lastKnownGood":null}`, string(data))

	require.NoError(t, s.Pin("openrouter/a"))
	data, err = os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"stack":["openrouter/a"],"lastKnownGood":"openrouter/a"}`, string(data))
}

func TestPersistsAcrossStores(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "h.json")
	require.NoError(t, New(path).Push("a"))
	require.NoError(t, New(path).Push("b"))

	assert.Equal(t, []string{"a", "b"}, New(path).Read().Stack)
}
