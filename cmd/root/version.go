package root

import (
	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/cli"
	"github.com/docker/model-switcher/pkg/httpclient"
	"github.com/docker/model-switcher/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Display the version and commit hash`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cli.NewPrinter(cmd.OutOrStdout())
			out.Printf("model-switcher version %s\n", version.Version)
			out.Printf("Commit: %s\n", version.Commit)
			out.Printf("User-Agent: %s\n", httpclient.UserAgent())
		},
	}
}
