package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/model-switcher/pkg/chatcmd"
	"github.com/docker/model-switcher/pkg/logging"
	"github.com/docker/model-switcher/pkg/redact"
)

type rootFlags struct {
	configPath  string
	debugMode   bool
	logFilePath string
	logFile     io.Closer
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "model-switcher",
		Short: "model-switcher - switch the model of an agent gateway safely",
		Long:  "model-switcher changes the active model of an OpenClaw-style agent gateway and rolls back automatically when the change cannot be applied.",
		Example: `  model-switcher current
  model-switcher set sonnet
  model-switcher rollback 2`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logFile, err := logging.Setup(flags.debugMode, flags.logFilePath)
			if err != nil {
				// If logging setup fails, fall back to stderr so we still get logs
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
				slog.Warn("Failed to open debug log file", "error", err)
				return nil
			}
			flags.logFile = logFile
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the configuration file (default: ~/.config/model-switcher/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.model-switcher/model-switcher.debug.log; only used with --debug)")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newCurrentCmd(&flags))
	cmd.AddCommand(newValidateCmd(&flags))
	cmd.AddCommand(newSetCmd(&flags))
	cmd.AddCommand(newRollbackCmd(&flags))
	cmd.AddCommand(newPinCmd(&flags))
	cmd.AddCommand(newRevertCmd(&flags))
	cmd.AddCommand(newHistoryCmd(&flags))
	cmd.AddCommand(newAliasCmd(&flags))
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	setContextRecursive(ctx, rootCmd)

	if err := rootCmd.Execute(); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

func setContextRecursive(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, child := range cmd.Commands() {
		setContextRecursive(ctx, child)
	}
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	if ctx.Err() != nil {
		return ctx.Err()
	} else if _, ok := errors.AsType[RuntimeError](err); ok {
		// Runtime errors have already been printed by the command itself
	} else {
		fmt.Fprintln(stderr, "Error: "+chatcmd.Describe(err, redact.New()))
		if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
			fmt.Fprintln(stderr)
			_ = rootCmd.Usage()
		}
	}

	return err
}

// RuntimeError wraps errors the command has already reported to the user
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string {
	return e.Err.Error()
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}
