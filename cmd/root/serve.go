package root

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/cli"
	"github.com/docker/model-switcher/pkg/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat commands over HTTP",
		Long: `Start an HTTP server that accepts "/model ..." chat messages on POST /api/commands.
Senders are checked against the permissions section of the configuration; with no
allow list configured every sender is denied. Without server.token only loopback
addresses and unix sockets are accepted.`,
		GroupID: "advanced",
		Args:    cobra.NoArgs,
		RunE: flags.withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			out := cli.NewPrinter(cmd.OutOrStdout())

			addr := listenAddr
			if addr == "" {
				addr = a.cfg.Server.Listen
			}

			if a.cfg.Server.Token == "" && !server.IsLocal(addr) {
				return fmt.Errorf("refusing to listen on %s without server.token: anyone who can reach it could switch models", addr)
			}

			ln, err := server.Listen(ctx, addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			if a.cfg.Permissions.AllowUsers == nil && a.cfg.Permissions.AllowRoles == nil {
				out.PrintWarning("No permissions configured: every chat sender will be denied")
			}
			if a.cfg.Server.Token == "" {
				out.PrintWarning("No server.token configured: any local process can send commands as any user")
			}
			out.Println("Listening on " + ln.Addr().String())
			slog.Debug("Starting server", "addr", ln.Addr().String())

			var opts []server.Opt
			if a.cfg.Server.Token != "" {
				opts = append(opts, server.WithAuthToken(a.cfg.Server.Token))
			}
			return server.New(a.dispatcher(), a.switcher, opts...).Serve(ctx, ln)
		}),
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address to listen on, or unix://<path> (default from config: 127.0.0.1:8089)")

	return cmd
}
