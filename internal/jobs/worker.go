package jobs

import (
	"context"
	"fmt"
	"os"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dla-grow/internal/results"
	"dla-grow/internal/sims/dla"
)

// Worker connects to a Server and grows the aggregates it is handed.
type Worker struct {
	URL  string
	Name string
	Log  logrus.FieldLogger

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// ReportEvery logs job progress at debug level every n steps.
	ReportEvery int
}

// Run processes jobs until the server reports the queue empty, returning the
// number of results delivered. Cancelling ctx abandons the current job; the
// server requeues it once the connection drops.
func (w *Worker) Run(ctx context.Context) (int, error) {
	log := w.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	name := w.Name
	if name == "" {
		name, _ = os.Hostname()
	}
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", w.URL, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := writeJSON(conn, Message{Type: TypeHello, Worker: name}); err != nil {
		return 0, err
	}

	delivered := 0
	for {
		msg, err := readJSON(conn)
		if err != nil {
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			return delivered, fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case TypeIdle:
			return delivered, nil
		case TypeJob:
		default:
			return delivered, fmt.Errorf("unexpected %q message", msg.Type)
		}

		jl := log.WithField("job_id", msg.JobID)
		reply := Message{Type: TypeResult, JobID: msg.JobID}
		if msg.Config == nil {
			reply.Error = "job without config"
		} else {
			jl.Info("job started")
			res, err := ExecuteReporting(ctx, Job{ID: msg.JobID, Config: *msg.Config}, jl, w.ReportEvery, func(s *dla.Simulation) {
				jl.WithFields(logrus.Fields{"iteration": s.Iteration(), "stuck": s.Stuck().Len()}).Debug("progress")
			})
			switch {
			case ctx.Err() != nil:
				return delivered, ctx.Err()
			case err != nil:
				reply.Error = err.Error()
			default:
				if reply.Payload, err = results.Marshal(res); err != nil {
					reply.Error = err.Error()
				}
			}
		}
		if err := writeJSON(conn, reply); err != nil {
			return delivered, fmt.Errorf("send result: %w", err)
		}
		if reply.Error != "" {
			jl.Warnf("job failed: %s", reply.Error)
			continue
		}
		delivered++
		jl.Info("job delivered")
	}
}
