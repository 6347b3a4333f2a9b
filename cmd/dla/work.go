package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dla-grow/internal/jobs"
)

var (
	workURL    string
	workName   string
	workReport int
)

func init() {
	RootCmd.AddCommand(workCmd)

	workCmd.Flags().StringVar(&workURL, "url", "ws://localhost:8787/jobs", "job server websocket URL")
	workCmd.Flags().StringVar(&workName, "name", "", "worker name reported to the server (default hostname)")
	workCmd.Flags().IntVar(&workReport, "report-every", 5000, "log progress at debug level every n steps")
}

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Grow aggregates handed out by a job server until its queue is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := &jobs.Worker{URL: workURL, Name: workName, Log: logger, ReportEvery: workReport}
		n, err := w.Run(ctx)
		logger.WithField("delivered", n).Info("worker finished")
		return err
	},
}
