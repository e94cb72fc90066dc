package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/scormbridge/internal/scorm/manifest"
)

func parseDialect(raw string, xmlText string) (manifest.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return manifest.Sniff(xmlText), nil
	case "1.1", "csf":
		return manifest.SCORM11, nil
	case "1.2":
		return manifest.SCORM12, nil
	case "2004":
		return manifest.SCORM2004, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want auto, 1.1, 1.2 or 2004)", raw)
	}
}

func newManifestCmd(opts *rootOptions) *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "manifest <file>",
		Short: "Print the entry document named by a single manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}
			xmlText := strings.TrimPrefix(string(raw), "\ufeff")
			d, err := parseDialect(dialect, xmlText)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}
			href, ok := manifest.NewResolver(opts.logger()).Resolve(xmlText, d)
			if !ok {
				return &ExitError{Code: 1, Err: fmt.Errorf("%s names no entry document (%s)", args[0], d)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), href)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "auto", "manifest dialect: auto, 1.1, 1.2 or 2004")
	return cmd
}
