// Package history persists the rollback stack of previously active models
// and the operator-pinned last known good model.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/docker/model-switcher/pkg/atomicfile"
)

// DefaultMaxEntries is the number of previous models kept on the stack.
const DefaultMaxEntries = 10

var (
	// ErrInsufficientHistory is the parent of every "nothing to roll back to" error.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrEmptyHistory is returned when popping from an empty stack.
	ErrEmptyHistory = fmt.Errorf("%w: rollback history is empty", ErrInsufficientHistory)
	// ErrInvalidSteps is returned when a pop is requested for fewer than one step.
	ErrInvalidSteps = errors.New("rollback steps must be at least 1")
)

// State is the persisted form of the history file.
// Stack holds previously active models, oldest first.
type State struct {
	Stack         []string `json:"stack"`
	LastKnownGood *string  `json:"lastKnownGood"`
}

// Pop removes up to n entries from the newest end of the stack and returns
// the deepest removed entry together with the remaining state. The receiver
// is not modified. Fewer than n available entries is not an error.
func (s State) Pop(n int) (string, State, error) {
	if n < 1 {
		return "", s, ErrInvalidSteps
	}
	if len(s.Stack) == 0 {
		return "", s, ErrEmptyHistory
	}

	stack := slices.Clone(s.Stack)
	var target string
	for range n {
		if len(stack) == 0 {
			break
		}
		target = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	return target, State{Stack: stack, LastKnownGood: s.LastKnownGood}, nil
}

// Pinned returns the last known good model, if any.
func (s State) Pinned() (string, bool) {
	if s.LastKnownGood == nil || *s.LastKnownGood == "" {
		return "", false
	}
	return *s.LastKnownGood, true
}

// Store owns the history file. Every mutating method persists before returning.
type Store struct {
	path       string
	maxEntries int
}

type Opt func(*Store)

func WithMaxEntries(n int) Opt {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func New(path string, opts ...Opt) *Store {
	s := &Store{
		path:       path,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the history file.
func (s *Store) Path() string {
	return s.path
}

// Read loads the persisted state. A missing or unreadable file yields an
// empty state: losing history is preferred over refusing to switch models.
func (s *Store) Read() State {
	data, err := atomicfile.Read(s.path)
	if err != nil {
		if !errors.Is(err, atomicfile.ErrNotFound) {
			slog.Warn("Failed to read model history, starting empty", "path", s.path, "error", err)
		}
		return State{Stack: []string{}}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("Corrupt model history file, starting empty", "path", s.path, "error", err)
		return State{Stack: []string{}}
	}
	if state.Stack == nil {
		state.Stack = []string{}
	}

	return state
}

// Save persists state, trimming the stack to the configured maximum.
func (s *Store) Save(state State) error {
	if state.Stack == nil {
		state.Stack = []string{}
	}
	if excess := len(state.Stack) - s.maxEntries; excess > 0 {
		state.Stack = state.Stack[excess:]
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model history: %w", err)
	}

	return atomicfile.Write(s.path, append(data, '\n'))
}

// Push records id as the newest entry, evicting the oldest entries beyond the maximum.
func (s *Store) Push(id string) error {
	state := s.Read()
	state.Stack = append(state.Stack, id)

	if err := s.Save(state); err != nil {
		return err
	}

	slog.Debug("Pushed model onto history", "model", id, "depth", min(len(state.Stack), s.maxEntries))
	return nil
}

// PopSteps removes up to n of the newest entries and returns the last one removed.
func (s *Store) PopSteps(n int) (string, error) {
	target, rest, err := s.Read().Pop(n)
	if err != nil {
		return "", err
	}

	if err := s.Save(rest); err != nil {
		return "", err
	}

	slog.Debug("Popped model history", "steps", n, "target", target, "remaining", len(rest.Stack))
	return target, nil
}

// Pin records id as the last known good model without touching the stack.
func (s *Store) Pin(id string) error {
	state := s.Read()
	state.LastKnownGood = &id
	return s.Save(state)
}

// Pinned returns the last known good model, if one was pinned.
func (s *Store) Pinned() (string, bool) {
	return s.Read().Pinned()
}
