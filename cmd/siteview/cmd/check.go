// ABOUTME: check command: validates configuration and reports what the server would serve.
// ABOUTME: Opens the view directory exactly as serve does, then prints pages, asset counts, and TLS state.
package cmd

import (
	"fmt"

	"github.com/2389-research/siteview/web"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	f := &siteFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate config and the view directory without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, f)
			if err != nil {
				return err
			}

			rt, err := web.NewRouter(cfg.ViewDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			inv, err := rt.Inventory()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pages := rt.Pages()
			fmt.Fprintf(out, "asset root:  %s\n", rt.AssetRoot())
			fmt.Fprintf(out, "index page:  %s\n", pages.Index.Source)
			fmt.Fprintf(out, "error page:  %s\n", pages.Error.Source)
			fmt.Fprintf(out, "stylesheets: %d\n", inv.CSS)
			fmt.Fprintf(out, "images:      %d\n", inv.PNG)
			fmt.Fprintf(out, "listen:      %s\n", cfg.Addr)
			if cert, _, ok := cfg.CertFiles(); ok {
				fmt.Fprintf(out, "tls:         on (%s)\n", cert)
			} else {
				fmt.Fprintln(out, "tls:         off")
			}
			if cfg.MetricsAddr != "" {
				fmt.Fprintf(out, "metrics:     %s\n", cfg.MetricsAddr)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
