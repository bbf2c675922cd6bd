package root

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/chatcmd"
	"github.com/docker/model-switcher/pkg/cli"
	"github.com/docker/model-switcher/pkg/switcher"
)

func newCurrentCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "current",
		Short:   "Print the active model",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			res, err := a.switcher.Current(cmd.Context())
			if err != nil {
				return err
			}

			out := cli.NewPrinter(cmd.OutOrStdout())
			out.PrintKeyValue("Model", res.Model)
			out.PrintKeyValue("Source", res.Source.String())
			if res.RemoteErr != nil {
				out.PrintWarning("Gateway unreachable, read from " + a.cfg.OpenClawConfig + ": " + a.describe(res.RemoteErr))
			}
			return nil
		}),
	}
}

func newValidateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <model|alias>",
		Short:   "Check that a model may be activated",
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			id := a.resolve(args[0])
			if err := a.switcher.Validate(cmd.Context(), id); err != nil {
				return err
			}

			cli.NewPrinter(cmd.OutOrStdout()).PrintSuccess(id + " is valid")
			return nil
		}),
	}
}

func newSetCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "set <model|alias>",
		Short: "Switch the active model, rolling back if it cannot be applied",
		Example: `  model-switcher set sonnet
  model-switcher set openrouter/openai/gpt-4o --dry-run`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var opts []switcher.SetOpt
			if dryRun {
				opts = append(opts, switcher.WithDryRun())
			}

			res, err := a.switcher.Set(cmd.Context(), a.resolve(args[0]), opts...)
			return a.report(cmd, res, err)
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the model without switching")

	return cmd
}

func newRollbackCmd(flags *rootFlags) *cobra.Command {
	var preserveHistory bool

	cmd := &cobra.Command{
		Use:   "rollback [steps]",
		Short: "Restore a previously active model",
		Long:  "Restore the model that was active the given number of switches ago (default 1).",
		Example: `  model-switcher rollback
  model-switcher rollback 3 --preserve-history`,
		GroupID: "core",
		Args:    cobra.MaximumNArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid number of steps %q", args[0])
				}
				steps = n
			}

			res, err := a.switcher.RollbackSteps(cmd.Context(), steps, preserveHistory)
			return a.report(cmd, res, err)
		}),
	}
	cmd.Flags().BoolVar(&preserveHistory, "preserve-history", false, "Keep the rolled back entries on the history stack")

	return cmd
}

func newPinCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "pin",
		Short:   "Pin the active model as last known good",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			id, err := a.switcher.PinGood(cmd.Context())
			if err != nil {
				return err
			}

			cli.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Pinned " + id + " as last known good")
			return nil
		}),
	}
}

func newRevertCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "revert",
		Short:   "Switch back to the pinned known good model",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			res, err := a.switcher.RevertGood(cmd.Context())
			return a.report(cmd, res, err)
		}),
	}
}

// withApp builds the app for a command and closes it afterwards.
func (f *rootFlags) withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), f)
		if err != nil {
			return err
		}
		defer a.Close()

		return run(cmd, a, args)
	}
}

// report prints the outcome of a switch request. Anything but success ends
// with a non-zero exit status.
func (a *app) report(cmd *cobra.Command, res *switcher.Result, err error) error {
	if err != nil {
		if errors.Is(err, switcher.ErrRollbackFailed) {
			cli.NewPrinter(cmd.ErrOrStderr()).PrintFatal(a.describe(err))
			return RuntimeError{Err: err}
		}
		return err
	}

	out := cli.NewPrinter(cmd.OutOrStdout())
	msg := chatcmd.FormatResult(res, a.redactor)
	if res.Outcome == switcher.OutcomeRolledBack {
		out.PrintWarning(msg)
		return RuntimeError{Err: res.ApplyErr}
	}

	out.PrintSuccess(msg)
	return nil
}
