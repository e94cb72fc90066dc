package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/scormbridge/internal/bridge"
	"github.com/yungbote/scormbridge/internal/scorm/cmi"
)

func readRecord(path string) (cmi.Record, error) {
	if path == "" {
		return cmi.Record{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec cmi.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", path, err)
	}
	return rec, nil
}

func newScriptCmd(_ *rootOptions) *cobra.Command {
	var (
		recordPath string
		endpoint   string
		token      string
		targets    string
	)
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Print the bridge JavaScript for injection into a content document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := readRecord(recordPath)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			kinds, err := bridge.ParseTargets(targets)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			js, err := bridge.Script(bridge.ScriptOptions{
				Record:   rec,
				Targets:  kinds,
				Endpoint: endpoint,
				Token:    token,
			})
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			fmt.Fprint(cmd.OutOrStdout(), js)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "JSON file holding the initial data-model record")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "http(s) or ws(s) URL messages are relayed to")
	cmd.Flags().StringVar(&token, "token", "", "bearer token sent with http relays")
	cmd.Flags().StringVar(&targets, "targets", "self,frames,opener", "comma separated install targets")
	return cmd
}
