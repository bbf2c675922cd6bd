// Package chatcmd turns "/model ..." chat messages into switcher requests and
// formats a single reply for each.
package chatcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/docker/model-switcher/pkg/catalog"
	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/permissions"
	"github.com/docker/model-switcher/pkg/redact"
	"github.com/docker/model-switcher/pkg/switcher"
)

// Controller is the part of the switcher the dispatcher drives.
type Controller interface {
	Current(ctx context.Context) (modelconfig.Resolution, error)
	Validate(ctx context.Context, id string) error
	Set(ctx context.Context, candidate string, opts ...switcher.SetOpt) (*switcher.Result, error)
	RollbackSteps(ctx context.Context, n int, preserveHistory bool) (*switcher.Result, error)
	PinGood(ctx context.Context) (string, error)
	RevertGood(ctx context.Context) (*switcher.Result, error)
	History() history.State
}

// Authorizer decides whether a sender may run commands.
type Authorizer interface {
	Check(userID string, roleIDs []string) permissions.Decision
}

// Sender identifies who sent a message.
type Sender struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids,omitempty"`
}

type Dispatcher struct {
	ctl      Controller
	auth     Authorizer
	catalog  *catalog.Catalog
	aliases  catalog.AliasLookup
	redactor *redact.Redactor
}

type Opt func(*Dispatcher)

// WithAliases resolves operator aliases before catalog aliases.
func WithAliases(aliases catalog.AliasLookup) Opt {
	return func(d *Dispatcher) {
		d.aliases = aliases
	}
}

func WithRedactor(r *redact.Redactor) Opt {
	return func(d *Dispatcher) {
		d.redactor = r
	}
}

func New(ctl Controller, auth Authorizer, cat *catalog.Catalog, opts ...Opt) *Dispatcher {
	d := &Dispatcher{
		ctl:     ctl,
		auth:    auth,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle runs text as a command on behalf of sender. handled is false when
// text is not a model command, in which case reply is empty.
func (d *Dispatcher) Handle(ctx context.Context, sender Sender, text string) (reply string, handled bool) {
	cmd, ok := Parse(text)
	if !ok {
		return "", false
	}

	if d.auth == nil || d.auth.Check(sender.UserID, sender.RoleIDs) != permissions.Allow {
		slog.Warn("Denied model command", "user", sender.UserID, "command", cmd.Name)
		return "You are not allowed to change the model.", true
	}

	slog.Debug("Running model command", "user", sender.UserID, "command", cmd.Name, "args", cmd.Args)

	reply, err := d.run(ctx, cmd)
	if err != nil {
		return d.errorReply(err), true
	}
	return reply, true
}

func (d *Dispatcher) run(ctx context.Context, cmd Command) (string, error) {
	switch cmd.Name {
	case "current":
		return d.current(ctx)
	case "set":
		return d.set(ctx, cmd)
	case "validate":
		return d.validate(ctx, cmd)
	case "rollback":
		return d.rollback(ctx, cmd)
	case "pin":
		return d.pin(ctx)
	case "revert":
		return d.revert(ctx)
	case "history":
		return FormatHistory(d.ctl.History()), nil
	case "list":
		return d.list(), nil
	default:
		return Usage(), nil
	}
}

func (d *Dispatcher) resolve(token string) string {
	if d.catalog == nil {
		return strings.TrimSpace(token)
	}
	return d.catalog.Resolve(token, d.aliases)
}

func (d *Dispatcher) current(ctx context.Context) (string, error) {
	res, err := d.ctl.Current(ctx)
	if err != nil {
		return "", err
	}
	return FormatCurrent(res), nil
}

func (d *Dispatcher) set(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) != 1 {
		return "", errors.New("usage: /model set <model|alias> [--dry-run]")
	}

	id := d.resolve(cmd.Args[0])
	var opts []switcher.SetOpt
	if cmd.DryRun {
		opts = append(opts, switcher.WithDryRun())
	}

	res, err := d.ctl.Set(ctx, id, opts...)
	if err != nil {
		return "", err
	}
	return FormatResult(res, d.redactor), nil
}

func (d *Dispatcher) validate(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) != 1 {
		return "", errors.New("usage: /model validate <model|alias>")
	}

	id := d.resolve(cmd.Args[0])
	if err := d.ctl.Validate(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is valid.", id), nil
}

func (d *Dispatcher) rollback(ctx context.Context, cmd Command) (string, error) {
	steps := 1
	if len(cmd.Args) > 1 {
		return "", errors.New("usage: /model rollback [steps]")
	}
	if len(cmd.Args) == 1 {
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			return "", fmt.Errorf("invalid number of steps %q", cmd.Args[0])
		}
		steps = n
	}

	res, err := d.ctl.RollbackSteps(ctx, steps, false)
	if err != nil {
		return "", err
	}
	return FormatResult(res, d.redactor), nil
}

func (d *Dispatcher) pin(ctx context.Context) (string, error) {
	id, err := d.ctl.PinGood(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Pinned %s as last known good.", id), nil
}

func (d *Dispatcher) revert(ctx context.Context) (string, error) {
	res, err := d.ctl.RevertGood(ctx)
	if err != nil {
		return "", err
	}
	return FormatResult(res, d.redactor), nil
}

func (d *Dispatcher) list() string {
	if d.catalog == nil {
		return "No model catalog configured."
	}

	var b strings.Builder
	b.WriteString("Allowed models:")
	for _, e := range d.catalog.Entries() {
		b.WriteString("\n- " + e.ID)
		if len(e.Aliases) > 0 {
			aliases := slices.Clone(e.Aliases)
			slices.Sort(aliases)
			b.WriteString(" (" + strings.Join(aliases, ", ") + ")")
		}
	}
	return b.String()
}

func (d *Dispatcher) errorReply(err error) string {
	if errors.Is(err, switcher.ErrRollbackFailed) {
		return Describe(err, d.redactor)
	}
	return "Error: " + Describe(err, d.redactor)
}
