package jobs

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dla-grow/internal/results"
	"dla-grow/internal/results/indexdb"
)

// Recorder indexes stored results. *indexdb.SQLiteIndex satisfies it.
type Recorder interface {
	Record(indexdb.Row)
}

// Server hands queued jobs to connecting workers one at a time and stores
// what they send back. A job whose worker disconnects goes back on the queue.
type Server struct {
	outDir string
	index  Recorder
	log    logrus.FieldLogger

	upgrader websocket.Upgrader

	// ResultTimeout bounds how long a worker may hold a job. Zero waits forever.
	ResultTimeout time.Duration

	mu        sync.Mutex
	queue     []Job
	inflight  map[string]Job
	total     int
	completed int
	failed    int
	done      chan struct{}
}

// NewServer queues jobs; results are written under outDir and recorded in
// index when it is non-nil.
func NewServer(jobs []Job, outDir string, index Recorder, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		outDir: outDir,
		index:  index,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		queue:    append([]Job(nil), jobs...),
		inflight: map[string]Job{},
		total:    len(jobs),
		done:     make(chan struct{}),
	}
	if s.total == 0 {
		close(s.done)
	}
	return s
}

// Done is closed once every job has completed or failed.
func (s *Server) Done() <-chan struct{} { return s.done }

// Completed returns the number of stored results.
func (s *Server) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Failed returns the number of jobs whose worker reported an error.
func (s *Server) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Pending returns the number of jobs not yet handed out.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Server) take() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Job{}, false
	}
	j := s.queue[0]
	s.queue = s.queue[1:]
	s.inflight[j.ID] = j
	return j, true
}

func (s *Server) requeue(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, j.ID)
	s.queue = append(s.queue, j)
}

func (s *Server) finish(j Job, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, j.ID)
	if ok {
		s.completed++
	} else {
		s.failed++
	}
	if s.completed+s.failed == s.total {
		close(s.done)
	}
}

// Handler upgrades the request and serves one worker until the queue is empty.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		name, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.WithField("worker", name)
		log.Info("worker connected")

		for {
			job, ok := s.take()
			if !ok {
				_ = writeJSON(conn, Message{Type: TypeIdle})
				log.Info("queue empty, releasing worker")
				return
			}
			cfg := job.Config
			if err := writeJSON(conn, Message{Type: TypeJob, JobID: job.ID, Config: &cfg}); err != nil {
				s.requeue(job)
				log.WithError(err).Warn("send job")
				return
			}
			msg, err := s.awaitResult(conn, job.ID)
			if err != nil {
				s.requeue(job)
				log.WithError(err).WithField("job_id", job.ID).Warn("worker lost, job requeued")
				return
			}
			if msg.Error != "" {
				s.finish(job, false)
				log.WithField("job_id", job.ID).Errorf("job failed: %s", msg.Error)
				continue
			}
			if err := s.store(job, msg.Payload); err != nil {
				s.finish(job, false)
				log.WithError(err).WithField("job_id", job.ID).Error("store result")
				continue
			}
			s.finish(job, true)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msg, err := readJSON(conn)
	if err != nil || msg.Type != TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	if msg.Worker == "" {
		msg.Worker = conn.RemoteAddr().String()
	}
	return msg.Worker, true
}

var errWrongJob = errors.New("result for another job")

func (s *Server) awaitResult(conn *websocket.Conn, jobID string) (Message, error) {
	var deadline time.Time
	if s.ResultTimeout > 0 {
		deadline = time.Now().Add(s.ResultTimeout)
	}
	_ = conn.SetReadDeadline(deadline)
	msg, err := readJSON(conn)
	if err != nil {
		return msg, err
	}
	if msg.Type != TypeResult {
		return msg, fmt.Errorf("expected %s, got %q", TypeResult, msg.Type)
	}
	if msg.JobID != jobID {
		return msg, fmt.Errorf("%w: %q", errWrongJob, msg.JobID)
	}
	return msg, nil
}

func (s *Server) store(job Job, payload []byte) error {
	r, err := results.Unmarshal(payload)
	if err != nil {
		return err
	}
	if r.Header.JobID != job.ID {
		return fmt.Errorf("%w: payload is %q", errWrongJob, r.Header.JobID)
	}
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.outDir, results.FileName(job.ID))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return err
	}
	if s.index != nil {
		s.index.Record(indexdb.RowFor(path, r))
	}
	fields := logrus.Fields{
		"job_id":    job.ID,
		"stuck":     r.Header.Stuck,
		"iteration": r.Header.Iteration,
		"path":      path,
	}
	if r.HasDimension {
		fields["dimension"] = r.Dimension
	}
	s.log.WithFields(fields).Info("result stored")
	return nil
}
