package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/scormbridge/internal/platform/logger"
)

type rootOptions struct {
	verbose bool
}

func (o *rootOptions) logger() *logger.Logger {
	if !o.verbose {
		return logger.NewNop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.NewNop()
	}
	return log
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "scormctl",
		Short: "Resolve SCORM packages and exercise the runtime bridge",
		Long: `scormctl finds the launchable document of a SCORM package, renders the
JavaScript bridge injected into content documents, and replays runtime call
scripts against a running scormbridge server.

Examples:
  scormctl resolve ./packages/golf
  scormctl manifest ./packages/golf/imsmanifest.xml --dialect 2004
  scormctl script --record record.json --endpoint https://lms.example.com/api/sessions/ID/messages
  scormctl replay --ws ws://localhost:8080/api/sessions/ID/ws?token=T --calls calls.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(newResolveCmd(opts))
	root.AddCommand(newManifestCmd(opts))
	root.AddCommand(newScriptCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	return root
}

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func execute(ctx context.Context, args []string) int {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}
