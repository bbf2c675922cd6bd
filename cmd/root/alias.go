package root

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/cli"
)

func newAliasCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage model aliases",
		Long:  "Create and manage short names for model ids. Your aliases take precedence over the built-in ones.",
		Example: `  # Create an alias
  model-switcher alias add fast openrouter/google/gemini-2.5-flash

  # List all aliases
  model-switcher alias list

  # Remove an alias
  model-switcher alias remove fast`,
		GroupID: "advanced",
	}

	cmd.AddCommand(newAliasAddCmd(flags))
	cmd.AddCommand(newAliasListCmd(flags))
	cmd.AddCommand(newAliasRemoveCmd(flags))

	return cmd
}

func newAliasAddCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <alias-name> <model>",
		Short: "Add a new alias",
		Args:  cobra.ExactArgs(2),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			name, id := args[0], a.resolve(args[1])

			if err := a.switcher.Validate(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.aliases.Set(name, id); err != nil {
				return err
			}
			if err := a.aliases.Save(); err != nil {
				return fmt.Errorf("failed to save aliases: %w", err)
			}

			out := cli.NewPrinter(cmd.OutOrStdout())
			out.PrintSuccess(fmt.Sprintf("Alias '%s' created", name))
			out.Printf("\nYou can now run: model-switcher set %s\n", name)
			return nil
		}),
	}
}

func newAliasListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List user and built-in aliases",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			var rows [][]string
			for _, name := range a.aliases.Names() {
				id, _ := a.aliases.Get(name)
				rows = append(rows, []string{name, id, "user"})
			}

			var builtin [][]string
			for _, e := range a.catalog.Entries() {
				for _, name := range e.Aliases {
					if _, shadowed := a.aliases.Get(name); shadowed {
						continue
					}
					builtin = append(builtin, []string{name, e.ID, "built-in"})
				}
			}
			slices.SortFunc(builtin, func(x, y []string) int {
				return strings.Compare(x[0], y[0])
			})
			rows = append(rows, builtin...)

			out := cli.NewPrinter(cmd.OutOrStdout())
			if len(rows) == 0 {
				out.Println("No aliases defined.")
				return nil
			}
			out.PrintTable([]string{"ALIAS", "MODEL", "SOURCE"}, rows)
			return nil
		}),
	}
}

func newAliasRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <alias-name>",
		Aliases: []string{"rm"},
		Short:   "Remove a user alias",
		Args:    cobra.ExactArgs(1),
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			name := args[0]
			if !a.aliases.Delete(name) {
				return fmt.Errorf("alias '%s' not found", name)
			}
			if err := a.aliases.Save(); err != nil {
				return fmt.Errorf("failed to save aliases: %w", err)
			}

			cli.NewPrinter(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Alias '%s' removed", name))
			return nil
		}),
	}
}
