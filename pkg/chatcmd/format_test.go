package chatcmd

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/redact"
	"github.com/docker/model-switcher/pkg/switcher"
)

func TestFormatCurrent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatCurrent(modelconfig.Resolution{Model: "openai/gpt-4o", Source: modelconfig.SourceRemote}),
		"Active model: openai/gpt-4o (from gateway)")
	assert.Equal(t, FormatCurrent(modelconfig.Resolution{Model: "openai/gpt-4o", Source: modelconfig.SourceFile, RemoteErr: errors.New("down")}),
		"Active model: openai/gpt-4o (from file), gateway unreachable")
}

func TestFormatResult(t *testing.T) {
	t.Parallel()

	r := redact.New("gw-secret")

	assert.Equal(t, FormatResult(&switcher.Result{
		Operation: switcher.OperationSet, Outcome: switcher.OutcomeSucceeded, Previous: "a/1", Active: "a/2",
	}, r), "Switched model from a/1 to a/2.")

	assert.Equal(t, FormatResult(&switcher.Result{
		Operation: switcher.OperationSet, Outcome: switcher.OutcomeRolledBack, Requested: "a/2", Active: "a/1",
		ApplyErr: errors.New("rejected with token gw-secret\nstack trace"),
	}, r), "Could not apply a/2: rejected with token [redacted]. Rolled back to a/1.")

	assert.Equal(t, FormatResult(&switcher.Result{
		Operation: switcher.OperationRollback, Outcome: switcher.OutcomeSucceeded, Active: "a/0",
	}, r), "Rolled back to a/0.")

	assert.Equal(t, FormatResult(&switcher.Result{
		Operation: switcher.OperationSet, Outcome: switcher.OutcomeDryRun, Requested: "a/2", Previous: "a/1",
	}, r), "Dry run: a/2 is valid (active: a/1).")
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatHistory(history.State{}), "Rollback history is empty.")

	pinned := "a/0"
	assert.Equal(t, FormatHistory(history.State{Stack: []string{"a/1", "a/2"}, LastKnownGood: &pinned}),
		"Rollback history (newest first):\n1. a/2\n2. a/1\nKnown good: a/0")
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	fatal := &switcher.RollbackFailedError{Requested: "a/2", Target: "a/1", ApplyErr: errors.New("x"), RollbackErr: errors.New("y")}
	assert.Equal(t, Describe(fatal, nil), `FATAL: applying "a/2" failed (x) and restoring "a/1" also failed: y Manual intervention required.`)
	assert.Equal(t, Describe(errors.New("first\nsecond"), nil), "first")
}
