package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dla-grow/internal/jobs"
	"dla-grow/internal/results"
	"dla-grow/internal/results/indexdb"
	"dla-grow/internal/sims/dla"
)

var (
	runConfig     string
	runOut        string
	runIndex      string
	runID         string
	runAutoRes    bool
	runOverrides  map[string]string
	runReportTick int
)

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfig, "config", "", "YAML run configuration (defaults when empty)")
	runCmd.Flags().StringToStringVar(&runOverrides, "set", nil, "override configuration keys, e.g. --set radius=2,max_particles=5000")
	runCmd.Flags().BoolVar(&runAutoRes, "auto-resolution", false, "derive leaf sizes from the particle radius")
	runCmd.Flags().StringVar(&runOut, "out", "", "write the finished aggregate to this file")
	runCmd.Flags().StringVar(&runIndex, "index", "", "record the run in this sqlite index (requires --out)")
	runCmd.Flags().StringVar(&runID, "id", "local", "job id stored with the result")
	runCmd.Flags().IntVar(&runReportTick, "report-every", 1000, "log progress every n steps (0 disables)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grow one aggregate locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := dla.DefaultConfig()
		if runConfig != "" {
			var err error
			if cfg, err = dla.LoadConfig(runConfig); err != nil {
				return err
			}
		}
		cfg = cfg.Apply(runOverrides)
		if runAutoRes {
			dla.FitResolution(&cfg)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if runIndex != "" && runOut == "" {
			return fmt.Errorf("--index needs --out")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := logger.WithField("job_id", runID)
		log.WithFields(logrus.Fields{
			"domain_size":   cfg.DomainSize,
			"radius":        cfg.Radius,
			"max_particles": cfg.MaxParticles,
			"seed":          cfg.Seed,
		}).Info("growing aggregate")

		r, err := jobs.ExecuteReporting(ctx, jobs.Job{ID: runID, Config: cfg}, log, runReportTick, progress(log))
		if err != nil {
			return err
		}
		if runOut != "" {
			if err := results.WriteFile(runOut, r); err != nil {
				return err
			}
			log.WithField("path", runOut).Info("result written")
			if runIndex != "" {
				idx, err := indexdb.OpenSQLite(runIndex, logger)
				if err != nil {
					return err
				}
				idx.Record(indexdb.RowFor(runOut, r))
				if err := idx.Close(); err != nil {
					return err
				}
			}
		}
		return printSummary(cmd.OutOrStdout(), r)
	},
}

func progress(log logrus.FieldLogger) func(*dla.Simulation) {
	return func(s *dla.Simulation) {
		log.WithFields(logrus.Fields{
			"iteration": s.Iteration(),
			"stuck":     s.Stuck().Len(),
			"walking":   s.Walkers().Live(),
			"enclosing": s.Stuck().EnclosingRadius(),
		}).Info("progress")
	}
}

func printSummary(w io.Writer, r results.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "job\t%s\n", r.Header.JobID)
	fmt.Fprintf(tw, "stuck\t%d\n", r.Header.Stuck)
	fmt.Fprintf(tw, "iterations\t%d\n", r.Header.Iteration)
	fmt.Fprintf(tw, "forced freezes\t%d\n", r.Snapshot.ForcedFreezes)
	fmt.Fprintf(tw, "enclosing radius\t%.3f\n", r.Snapshot.EnclosingRadius)
	fmt.Fprintf(tw, "elapsed\t%s\n", r.Elapsed)
	if r.HasDimension {
		fmt.Fprintf(tw, "dimension\t%.4f\n", r.Dimension)
	}
	fmt.Fprintln(tw, "\nscale\tboxes\tlog n / log(1/s)")

	counts := r.BoxCounts.Map()
	dims := dla.Dimensions(counts)
	scales := make([]float64, 0, len(counts))
	for s := range counts {
		scales = append(scales, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scales)))
	for _, s := range scales {
		if d, ok := dims[s]; ok {
			fmt.Fprintf(tw, "%g\t%d\t%.4f\n", s, counts[s], d)
		} else {
			fmt.Fprintf(tw, "%g\t%d\t-\n", s, counts[s])
		}
	}
	return tw.Flush()
}
