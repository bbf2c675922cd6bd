// Package switcher changes the active model of the agent gateway and rolls
// back automatically when a change cannot be applied.
//
// A request moves through Validating, Snapshotting and Applying, then ends in
// Succeeded or, after RollingBack, in RolledBack. When the rollback itself
// fails the request ends in RollbackFailed and the error is surfaced as a
// *RollbackFailedError.
package switcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/docker/model-switcher/pkg/catalog"
	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/journal"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/openrouter"
	"github.com/docker/model-switcher/pkg/redact"
)

// State is a step of a switch request.
type State int

const (
	StateValidating State = iota
	StateSnapshotting
	StateApplying
	StateSucceeded
	StateRollingBack
	StateRolledBack
	StateRollbackFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateSnapshotting:
		return "snapshotting"
	case StateApplying:
		return "applying"
	case StateSucceeded:
		return "succeeded"
	case StateRollingBack:
		return "rolling_back"
	case StateRolledBack:
		return "rolled_back"
	case StateRollbackFailed:
		return "rollback_failed"
	default:
		return "unknown"
	}
}

type Operation string

const (
	OperationSet      Operation = "set"
	OperationRollback Operation = "rollback"
	OperationRevert   Operation = "revert"
	OperationPin      Operation = "pin"
)

// Outcome is the terminal state reported to the caller.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeRolledBack     Outcome = "rolled_back"
	OutcomeRollbackFailed Outcome = "rollback_failed"
	OutcomeFailed         Outcome = "failed"
	OutcomeDryRun         Outcome = "dry_run"
)

// Result describes a finished request.
type Result struct {
	ID        string
	Operation Operation
	Outcome   Outcome
	Requested string
	// Previous is the model that was active when the request started.
	Previous string
	// Active is the model active when the request finished.
	Active string
	Source modelconfig.Source
	// ApplyErr is why the requested model could not be applied, for RolledBack results.
	ApplyErr error
}

// ConfigAccessor reads and writes the active model.
type ConfigAccessor interface {
	Active(ctx context.Context) (modelconfig.Resolution, error)
	Apply(ctx context.Context, id string) (modelconfig.Resolution, error)
}

// Allowlist is the closed set of models that may be activated.
type Allowlist interface {
	Contains(id string) bool
}

// CatalogChecker looks a model up in a remote listing. A miss is reported
// with an error wrapping openrouter.ErrNotListed; any other error means the
// lookup itself failed.
type CatalogChecker interface {
	Check(ctx context.Context, id string) error
}

// Recorder receives every finished request.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Switcher struct {
	mu        sync.Mutex
	config    ConfigAccessor
	history   *history.Store
	allowlist Allowlist
	catalog   CatalogChecker
	recorder  Recorder
	redactor  *redact.Redactor
}

type Opt func(*Switcher)

// WithCatalogCheck consults checker during validation.
func WithCatalogCheck(checker CatalogChecker) Opt {
	return func(s *Switcher) {
		s.catalog = checker
	}
}

func WithRecorder(recorder Recorder) Opt {
	return func(s *Switcher) {
		s.recorder = recorder
	}
}

// WithRedactor sets the redactor applied to recorded error messages.
func WithRedactor(r *redact.Redactor) Opt {
	return func(s *Switcher) {
		s.redactor = r
	}
}

func New(config ConfigAccessor, hist *history.Store, allowlist Allowlist, opts ...Opt) *Switcher {
	s := &Switcher{
		config:    config,
		history:   hist,
		allowlist: allowlist,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type setOptions struct {
	dryRun bool
}

type SetOpt func(*setOptions)

// WithDryRun validates the candidate and reports the current model without changing anything.
func WithDryRun() SetOpt {
	return func(o *setOptions) {
		o.dryRun = true
	}
}

// Validate checks that id is well formed, allowlisted and, when a catalog
// check is configured, listed remotely. A failed remote lookup does not
// reject the model.
func (s *Switcher) Validate(ctx context.Context, id string) error {
	if err := catalog.CheckFormat(id); err != nil {
		return &ValidationError{Model: id, Reason: err.Error(), Err: err}
	}
	if !s.allowlist.Contains(id) {
		return &ValidationError{Model: id, Reason: "not in the model allowlist"}
	}
	if s.catalog == nil {
		return nil
	}

	if err := s.catalog.Check(ctx, id); err != nil {
		if errors.Is(err, openrouter.ErrNotListed) {
			return &ValidationError{Model: id, Reason: "not listed by the remote model catalog", Err: err}
		}
		slog.Warn("Remote model catalog check failed, accepting model", "model", id, "error", err)
	}
	return nil
}

// Set makes candidate the active model. When it cannot be applied the
// previous model is restored and the result reports OutcomeRolledBack with a
// nil error. Cancelling ctx abandons the request only until Applying begins.
func (s *Switcher) Set(ctx context.Context, candidate string, opts ...SetOpt) (*Result, error) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{ID: uuid.NewString(), Operation: OperationSet, Requested: candidate}

	s.trace(res, StateValidating)
	if err := s.Validate(ctx, candidate); err != nil {
		return nil, err
	}

	if o.dryRun {
		if cur, err := s.config.Active(ctx); err == nil {
			res.Previous = cur.Model
			res.Active = cur.Model
			res.Source = cur.Source
		}
		res.Outcome = OutcomeDryRun
		s.record(ctx, res, nil)
		return res, nil
	}

	return s.switchTo(ctx, res, candidate)
}

// RevertGood applies the pinned model. The model active beforehand is pushed
// onto the history so the revert can itself be rolled back.
func (s *Switcher) RevertGood(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pinned, ok := s.history.Pinned()
	if !ok {
		return nil, ErrNoPinnedModel
	}

	res := &Result{ID: uuid.NewString(), Operation: OperationRevert, Requested: pinned}
	return s.switchTo(ctx, res, pinned)
}

func (s *Switcher) switchTo(ctx context.Context, res *Result, candidate string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.trace(res, StateSnapshotting)
	cur, err := s.config.Active(ctx)
	if err != nil {
		return nil, err
	}
	res.Previous = cur.Model

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	before := s.history.Read()
	if err := s.history.Push(cur.Model); err != nil {
		return nil, err
	}

	// From here on the request runs to a terminal state.
	ctx = context.WithoutCancel(ctx)

	s.trace(res, StateApplying)
	applied, applyErr := s.config.Apply(ctx, candidate)
	if applyErr == nil {
		res.Outcome = OutcomeSucceeded
		res.Active = candidate
		res.Source = applied.Source
		s.trace(res, StateSucceeded)
		slog.Info("Model switched", "id", res.ID, "from", res.Previous, "to", candidate, "source", applied.Source)
		s.record(ctx, res, nil)
		return res, nil
	}

	s.trace(res, StateRollingBack)
	slog.Warn("Applying model failed, rolling back", "id", res.ID, "model", candidate, "error", applyErr)
	res.ApplyErr = applyErr

	target, restored, rollbackErr := s.rollbackOne(ctx, before)
	if rollbackErr != nil {
		rfErr := &RollbackFailedError{
			Requested:   candidate,
			Target:      target,
			ApplyErr:    applyErr,
			RollbackErr: rollbackErr,
		}
		res.Outcome = OutcomeRollbackFailed
		s.trace(res, StateRollbackFailed)
		slog.Error("Rollback failed, manual intervention required", "id", res.ID, "model", candidate, "target", target, "error", rollbackErr)
		s.record(ctx, res, rfErr)
		return res, rfErr
	}

	res.Outcome = OutcomeRolledBack
	res.Active = target
	res.Source = restored.Source
	s.trace(res, StateRolledBack)
	slog.Info("Rolled back to previous model", "id", res.ID, "model", target, "source", restored.Source)
	s.record(ctx, res, applyErr)
	return res, nil
}

// rollbackOne pops the entry pushed by the current request and re-applies it.
// The history is restored to before, which also brings back an entry the push
// may have evicted from a full stack.
func (s *Switcher) rollbackOne(ctx context.Context, before history.State) (string, modelconfig.Resolution, error) {
	target, _, err := s.history.Read().Pop(1)
	if err != nil {
		return "", modelconfig.Resolution{}, err
	}
	if err := s.history.Save(before); err != nil {
		return target, modelconfig.Resolution{}, err
	}

	restored, err := s.config.Apply(ctx, target)
	return target, restored, err
}

// RollbackSteps restores the model n entries down the history. The popped
// entries are discarded unless preserveHistory is set. Nothing is persisted
// when applying the target fails.
func (s *Switcher) RollbackSteps(ctx context.Context, n int, preserveHistory bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, rest, err := s.history.Read().Pop(n)
	if err != nil {
		return nil, err
	}

	res := &Result{ID: uuid.NewString(), Operation: OperationRollback, Requested: target}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cur, err := s.config.Active(ctx); err == nil {
		res.Previous = cur.Model
	} else {
		slog.Warn("Could not read active model before rollback", "error", err)
	}

	ctx = context.WithoutCancel(ctx)

	s.trace(res, StateApplying)
	applied, err := s.config.Apply(ctx, target)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Active = res.Previous
		s.record(ctx, res, err)
		return res, err
	}

	if !preserveHistory {
		if err := s.history.Save(rest); err != nil {
			res.Outcome = OutcomeFailed
			s.record(ctx, res, err)
			return res, err
		}
	}

	res.Outcome = OutcomeSucceeded
	res.Active = target
	res.Source = applied.Source
	slog.Info("Rolled back model", "id", res.ID, "steps", n, "model", target, "preserve_history", preserveHistory)
	s.record(ctx, res, nil)
	return res, nil
}

// PinGood records the active model as the last known good one.
func (s *Switcher) PinGood(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.config.Active(ctx)
	if err != nil {
		return "", err
	}
	if err := s.history.Pin(cur.Model); err != nil {
		return "", err
	}

	slog.Info("Pinned known good model", "model", cur.Model)
	s.record(ctx, &Result{
		ID:        uuid.NewString(),
		Operation: OperationPin,
		Outcome:   OutcomeSucceeded,
		Requested: cur.Model,
		Previous:  cur.Model,
		Active:    cur.Model,
		Source:    cur.Source,
	}, nil)
	return cur.Model, nil
}

// Current returns the active model and where it was read from.
func (s *Switcher) Current(ctx context.Context) (modelconfig.Resolution, error) {
	return s.config.Active(ctx)
}

// History returns the persisted rollback stack and pin.
func (s *Switcher) History() history.State {
	return s.history.Read()
}

func (s *Switcher) trace(res *Result, state State) {
	slog.Debug("Switch request state", "id", res.ID, "operation", res.Operation, "model", res.Requested, "state", state)
}

func (s *Switcher) record(ctx context.Context, res *Result, err error) {
	if s.recorder == nil {
		return
	}

	entry := journal.Entry{
		ID:        res.ID,
		Operation: string(res.Operation),
		Requested: res.Requested,
		Previous:  res.Previous,
		Active:    res.Active,
		Outcome:   string(res.Outcome),
		Error:     s.redactor.Error(err),
	}
	if res.Source != 0 {
		entry.Source = res.Source.String()
	}

	if recErr := s.recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		slog.Warn("Failed to record switch request", "id", res.ID, "error", recErr)
	}
}
