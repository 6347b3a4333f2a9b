package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at link time.
var Version = "dev"

var (
	logLevel string
	logJSON  bool

	logger = logrus.New()
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "dla",
	Short: "Grow diffusion-limited aggregates.",
	Long: `Grow two-dimensional diffusion-limited aggregates of equal discs and
estimate their box-counting dimension. Runs can be local or spread across
workers connected to a job server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func setupLogging() error {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger.SetLevel(lvl)
	if logJSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
		return nil
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
	return nil
}

func init() {
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dla",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dla %s\n", Version)
	},
}
