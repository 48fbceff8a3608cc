package main

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [-- loom-args...]",
		Short: "Launch loom with the configured arguments and environment",
		Long: `exec locates loom and runs it with stdin, stdout and stderr attached.
Arguments after -- replace command.args. The exit status of loom is
returned unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.newLauncher(ctx)
			if err != nil {
				return err
			}
			c, err := l.Locate(ctx)
			if err != nil {
				return err
			}

			child := c.Cmd(ctx, args...)
			child.Stdin = cmd.InOrStdin()
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()

			a.logger.V(1).Info("starting loom", "path", c.Path, "args", child.Args[1:])
			if err := child.Run(); err != nil {
				var ee *exec.ExitError
				if errors.As(err, &ee) && ee.ExitCode() >= 0 {
					return &exitError{code: ee.ExitCode()}
				}
				return fmt.Errorf("run %s: %w", c.Path, err)
			}
			return nil
		},
	}
}
