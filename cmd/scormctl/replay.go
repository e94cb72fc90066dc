package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/scormbridge/internal/bridge"
)

type replayCall struct {
	Action    string `json:"action"`
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value,omitempty"`
}

func readCalls(path string) ([]replayCall, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var calls []replayCall
	if err := json.Unmarshal(raw, &calls); err != nil {
		return nil, fmt.Errorf("parse calls %s: %w", path, err)
	}
	return calls, nil
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var (
		wsURL      string
		callsPath  string
		recordPath string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a call script through the content half over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if wsURL == "" || callsPath == "" {
				return &ExitError{Code: 2, Err: fmt.Errorf("--ws and --calls are required")}
			}
			calls, err := readCalls(callsPath)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			rec, err := readRecord(recordPath)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			log := opts.logger()
			defer log.Sync()

			poster, err := bridge.DialWS(cmd.Context(), wsURL, nil)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			defer poster.Close()

			out := cmd.OutOrStdout()
			poster.OnReply = func(r bridge.Reply) {
				if r.Error != "" {
					fmt.Fprintf(out, "  host: %s -> %s (%s)\n", r.Action, r.Result, r.Error)
				}
			}
			content := bridge.NewContent(log, rec, poster)
			defer content.Close()
			for _, c := range calls {
				result := content.Call(cmd.Context(), c.Action, c.Parameter, c.Value)
				// Replay is a script: let the host answer before the next line.
				if err := content.Flush(cmd.Context()); err != nil {
					return &ExitError{Code: 1, Err: err}
				}
				switch {
				case c.Parameter != "" && c.Value != "":
					fmt.Fprintf(out, "%s(%q, %q) = %q\n", c.Action, c.Parameter, c.Value, result)
				case c.Parameter != "":
					fmt.Fprintf(out, "%s(%q) = %q\n", c.Action, c.Parameter, result)
				default:
					fmt.Fprintf(out, "%s() = %q\n", c.Action, result)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&wsURL, "ws", "", "session websocket URL including its token")
	cmd.Flags().StringVar(&callsPath, "calls", "", "JSON array of {action, parameter, value}")
	cmd.Flags().StringVar(&recordPath, "record", "", "JSON file seeding the content-side record")
	return cmd
}
