package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dla-grow/internal/jobs"
	"dla-grow/internal/results/indexdb"
)

var (
	serveAddr    string
	serveOut     string
	serveIndex   string
	serveTimeout time.Duration
	serveLinger  bool
)

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8787", "listen address")
	serveCmd.Flags().StringVar(&serveOut, "out", "results", "directory for finished aggregates")
	serveCmd.Flags().StringVar(&serveIndex, "index", "", "sqlite index of finished runs (default <out>/runs.db)")
	serveCmd.Flags().DurationVar(&serveTimeout, "result-timeout", 0, "requeue a job when its worker has been silent this long (0 waits forever)")
	serveCmd.Flags().BoolVar(&serveLinger, "linger", false, "keep serving after the queue is drained")
}

var serveCmd = &cobra.Command{
	Use:   "serve <jobs.yaml>",
	Short: "Hand the jobs in a YAML job list to connecting workers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := jobs.LoadJobs(args[0])
		if err != nil {
			return err
		}
		if serveIndex == "" {
			serveIndex = filepath.Join(serveOut, "runs.db")
		}
		idx, err := indexdb.OpenSQLite(serveIndex, logger)
		if err != nil {
			return err
		}
		defer idx.Close()

		srv := jobs.NewServer(list, serveOut, idx, logger)
		srv.ResultTimeout = serveTimeout

		mux := http.NewServeMux()
		mux.Handle("/jobs", srv.Handler())
		hs := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() { errc <- hs.ListenAndServe() }()
		logger.WithFields(logrus.Fields{
			"addr": serveAddr,
			"jobs": len(list),
			"out":  serveOut,
		}).Info("job server listening on /jobs")

		drained := srv.Done()
		if serveLinger {
			drained = nil
		}
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-drained:
			logger.WithFields(logrus.Fields{
				"completed": srv.Completed(),
				"failed":    srv.Failed(),
			}).Info("all jobs finished")
		case <-ctx.Done():
			logger.WithField("pending", srv.Pending()).Warn("interrupted")
		}

		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdown)
	},
}
