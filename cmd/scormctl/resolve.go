package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/scormbridge/internal/scorm/launch"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
)

type resolveOutput struct {
	launch.Descriptor
	URI      string          `json:"uri"`
	Strategy launch.Strategy `json:"strategy"`
	Manifest string          `json:"manifest,omitempty"`
	Dialect  string          `json:"dialect,omitempty"`
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		timeout   time.Duration
		noSniff   bool
		userAgent string
	)
	cmd := &cobra.Command{
		Use:   "resolve <root>",
		Short: "Print the launch descriptor of a package root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.logger()
			defer log.Sync()

			locator := resource.NewLocator(log, resource.WithTimeout(timeout), resource.WithUserAgent(userAgent))
			var launchOpts []launch.Option
			if noSniff {
				launchOpts = append(launchOpts, launch.WithoutSniffing())
			}
			res, err := launch.New(log, locator, launchOpts...).Resolve(cmd.Context(), args[0])
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			out := resolveOutput{
				Descriptor: res.Descriptor,
				URI:        res.URI(),
				Strategy:   res.Strategy,
				Manifest:   res.Manifest,
			}
			if res.Strategy == launch.StrategyManifest {
				out.Dialect = string(res.Dialect)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout for remote roots")
	cmd.Flags().BoolVar(&noSniff, "no-sniff", false, "treat every IMS manifest as SCORM 1.2")
	cmd.Flags().StringVar(&userAgent, "user-agent", "scormctl/1.0", "User-Agent for remote probes")
	return cmd
}
