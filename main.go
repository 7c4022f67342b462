package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biblaevnikita/dunno/app"
	"github.com/biblaevnikita/dunno/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dunno",
		Short: "Multi-process reactor static file server",
		Long: `dunno serves static files over HTTP from a document root.

The master process spawns worker processes that all bind the same
address with SO_REUSEPORT; each worker multiplexes its connections over
a single-threaded readiness loop. Every response closes its connection.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}
			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	fl := cmd.Flags()
	fl.IntP("workers", "w", config.DefaultWorkers(), "worker process count (0 serves in-process)")
	fl.StringP("root", "r", "", "document root directory (required)")
	fl.StringP("addr", "a", config.DefaultAddr, "bind address")
	fl.IntP("port", "p", config.DefaultPort, "bind port")
	fl.StringP("log-file", "l", "", "log destination (default stderr)")
	fl.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	fl.Duration("poll-interval", config.DefaultPollInterval, "readiness wait bound per reactor pass")
	fl.Duration("read-timeout", config.DefaultReadTimeout, "idle limit while a request is being read")
	fl.Int("max-header-bytes", config.DefaultMaxHeaderBytes, "request line plus header section cap")
	fl.StringVar(&cfgFile, "config", "", "optional YAML config file")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dunno:", err)
		os.Exit(1)
	}
}
