package root

import (
	"slices"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/cli"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Show the rollback history, the pinned model and recent switches",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			out := cli.NewPrinter(cmd.OutOrStdout())
			state := a.switcher.History()

			if len(state.Stack) == 0 {
				out.Println("Rollback history is empty.")
			} else {
				stack := slices.Clone(state.Stack)
				slices.Reverse(stack)

				rows := make([][]string, 0, len(stack))
				for i, id := range stack {
					rows = append(rows, []string{strconv.Itoa(i + 1), id})
				}
				out.PrintTable([]string{"STEPS", "MODEL"}, rows)
			}

			if pinned, ok := state.Pinned(); ok {
				out.Println()
				out.PrintKeyValue("Known good", pinned)
			}

			if a.journal == nil || limit <= 0 {
				return nil
			}

			entries, err := a.journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					units.HumanDuration(time.Since(e.CreatedAt)) + " ago",
					e.Operation,
					e.Outcome,
					e.Requested,
					e.Active,
				})
			}
			out.Println()
			out.PrintTable([]string{"WHEN", "OPERATION", "OUTCOME", "REQUESTED", "ACTIVE"}, rows)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent switches to show (0 to hide)")

	return cmd
}
