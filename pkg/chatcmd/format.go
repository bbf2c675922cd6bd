package chatcmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/redact"
	"github.com/docker/model-switcher/pkg/switcher"
)

// Usage lists the available commands.
func Usage() string {
	return strings.Join([]string{
		"Usage:",
		"/model                         show the active model",
		"/model <model|alias>           switch model",
		"/model set <model> [--dry-run] switch model",
		"/model validate <model>        check a model without switching",
		"/model rollback [steps]        restore a previous model",
		"/model pin                     pin the active model as known good",
		"/model revert                  switch back to the pinned model",
		"/model history                 show rollback history",
		"/model list                    list allowed models",
	}, "\n")
}

// FormatCurrent describes the active model and where it was read from.
func FormatCurrent(res modelconfig.Resolution) string {
	s := fmt.Sprintf("Active model: %s (from %s)", res.Model, res.Source)
	if res.RemoteErr != nil {
		s += ", gateway unreachable"
	}
	return s
}

// FormatResult describes a finished switch request in one line.
func FormatResult(res *switcher.Result, r *redact.Redactor) string {
	switch res.Outcome {
	case switcher.OutcomeDryRun:
		if res.Previous == "" {
			return fmt.Sprintf("Dry run: %s is valid.", res.Requested)
		}
		return fmt.Sprintf("Dry run: %s is valid (active: %s).", res.Requested, res.Previous)
	case switcher.OutcomeRolledBack:
		return fmt.Sprintf("Could not apply %s: %s. Rolled back to %s.", res.Requested, OneLine(r.Error(res.ApplyErr)), res.Active)
	case switcher.OutcomeSucceeded:
		switch res.Operation {
		case switcher.OperationRollback:
			return fmt.Sprintf("Rolled back to %s.", res.Active)
		case switcher.OperationRevert:
			return fmt.Sprintf("Reverted to known good model %s.", res.Active)
		default:
			if res.Previous == "" || res.Previous == res.Active {
				return fmt.Sprintf("Active model is now %s.", res.Active)
			}
			return fmt.Sprintf("Switched model from %s to %s.", res.Previous, res.Active)
		}
	default:
		return fmt.Sprintf("Request for %s ended with %s.", res.Requested, res.Outcome)
	}
}

// FormatHistory lists the rollback stack newest first, then the pin.
func FormatHistory(state history.State) string {
	var b strings.Builder
	if len(state.Stack) == 0 {
		b.WriteString("Rollback history is empty.")
	} else {
		b.WriteString("Rollback history (newest first):")
		stack := slices.Clone(state.Stack)
		slices.Reverse(stack)
		for i, id := range stack {
			fmt.Fprintf(&b, "\n%d. %s", i+1, id)
		}
	}

	if pinned, ok := state.Pinned(); ok {
		b.WriteString("\nKnown good: " + pinned)
	}
	return b.String()
}

// OneLine keeps the first line of msg.
func OneLine(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

// Describe gives the human message for an error returned by the switcher.
// Fatal rollback failures are marked so they stand out.
func Describe(err error, r *redact.Redactor) string {
	msg := OneLine(r.Error(err))
	if errors.Is(err, switcher.ErrRollbackFailed) {
		return "FATAL: " + msg + " Manual intervention required."
	}
	return msg
}
