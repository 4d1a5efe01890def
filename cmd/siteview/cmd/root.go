// ABOUTME: Root cobra command and shared config loading for the siteview CLI.
// ABOUTME: Global flags select the YAML config file and the .env file.
package cmd

import (
	"github.com/2389-research/siteview/config"
	"github.com/spf13/cobra"
)

// Version info (set by ldflags during build)
var (
	Version = "dev"
	Commit  = "none"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "siteview",
		Short: "Static site router for CSS, PNG, and fixed HTML pages",
		Long: `siteview serves a small website from a view directory:

  *.css  -> text/css from the view directory (404 if missing)
  *.png  -> image/png from the view directory (404 if missing)
  /      -> html/index.html
  other  -> html/error.html

Configuration is read from defaults, an optional YAML file, a .env file,
PATH_VIEW / PORT / SSL_PATH, and finally command-line flags.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("siteview version {{.Version}}\n")

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: $XDG_CONFIG_HOME/siteview/siteview.yaml if present)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", ".env file to load (missing files are ignored)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// siteFlags are the per-command overrides for config values.
type siteFlags struct {
	viewDir     string
	addr        string
	sslDir      string
	metricsAddr string
}

func (f *siteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.viewDir, "view", "", "view directory (asset root, pages under html/)")
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address, e.g. :11400")
	cmd.Flags().StringVar(&f.sslDir, "ssl-dir", "", "directory holding fullchain.pem and privkey.pem")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "separate listen address for Prometheus metrics")
}

// loadConfig layers .env, the config file, the environment, and any flags
// the user set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command, opts *globalOptions, f *siteFlags) (config.Config, error) {
	if opts.envFile != "" {
		if err := config.LoadDotEnv(opts.envFile); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(config.FindConfigFile(opts.configPath))
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("view") {
		cfg.ViewDir = f.viewDir
	}
	if flags.Changed("addr") {
		cfg.Addr = f.addr
	}
	if flags.Changed("ssl-dir") {
		cfg.SSLDir = f.sslDir
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
