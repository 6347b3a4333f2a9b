package jobs

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"dla-grow/internal/results"
	"dla-grow/internal/results/indexdb"
	"dla-grow/internal/sims/dla"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJobs(t *testing.T) {
	path := writeFile(t, `
defaults:
  domain_size: 64
  max_particles: 200
jobs:
  - id: small
    auto_resolution: true
    config:
      radius: 2
  - id: ensemble
    repeat: 3
    config:
      seed: 10
      collision_leaf_side: 4
      box_leaf_side: 0.5
  - id: offset
    config:
      seed_position: {x: 10, y: 20}
`)
	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	if strings.Join(ids, ",") != "small,ensemble-0,ensemble-1,ensemble-2,offset" {
		t.Fatalf("ids = %v", ids)
	}

	small := jobs[0].Config
	if small.DomainSize != 64 || small.Radius != 2 || small.MaxParticles != 200 {
		t.Fatalf("small = %+v", small)
	}
	if small.CollisionLeafSide != 8 || small.SeedPosition != (dla.Vec2{X: 32, Y: 32}) {
		t.Fatalf("small resolution/seed = %v %+v", small.CollisionLeafSide, small.SeedPosition)
	}
	for k, j := range jobs[1:4] {
		if j.Config.Seed != 10+int64(k) || j.Config.BoxLeafSide != 0.5 {
			t.Fatalf("%s config = %+v", j.ID, j.Config)
		}
	}
	if jobs[4].Config.SeedPosition != (dla.Vec2{X: 10, Y: 20}) {
		t.Fatalf("offset seed = %+v", jobs[4].Config.SeedPosition)
	}
}

func TestLoadJobsRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":     "jobs:\n  - config: {radius: 1}\n",
		"duplicate id":   "jobs:\n  - id: a\n  - id: a\n",
		"invalid config": "jobs:\n  - id: a\n    config: {radius: -1}\n",
		"repeat clash":   "jobs:\n  - id: a\n    repeat: 2\n  - id: a-1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadJobs(writeFile(t, body)); !errors.Is(err, ErrJobList) {
				t.Fatalf("err = %v, want ErrJobList", err)
			}
		})
	}
}

func smallJob(id string, seed int64) Job {
	c := dla.DefaultConfig()
	c.DomainSize = 32
	c.SeedPosition = dla.Vec2{X: 16, Y: 16}
	c.MaxParticles = 6
	c.StepStrength = 2
	c.Seed = seed
	dla.FitResolution(&c)
	return Job{ID: id, Config: c}
}

func TestExecuteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Execute(ctx, smallJob("c", 1), quietLog()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	r, err := Execute(context.Background(), smallJob("c", 1), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	if r.Header.JobID != "c" || r.Header.Stuck != 7 {
		t.Fatalf("header = %+v", r.Header)
	}
}

type memRecorder struct {
	mu   sync.Mutex
	rows []indexdb.Row
}

func (m *memRecorder) Record(r indexdb.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitDone(t *testing.T, s *Server) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("server never finished its queue")
	}
}

func TestServerWorkerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &memRecorder{}
	srv := NewServer([]Job{smallJob("a", 1), smallJob("b", 2)}, dir, rec, quietLog())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	w := &Worker{URL: wsURL(ts), Name: "tester", Log: quietLog()}
	n, err := w.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("delivered %d, want 2", n)
	}
	waitDone(t, srv)
	if srv.Completed() != 2 || srv.Failed() != 0 || srv.Pending() != 0 {
		t.Fatalf("completed=%d failed=%d pending=%d", srv.Completed(), srv.Failed(), srv.Pending())
	}

	for _, id := range []string{"a", "b"} {
		r, err := results.ReadFile(filepath.Join(dir, results.FileName(id)))
		if err != nil {
			t.Fatalf("result %s: %v", id, err)
		}
		if r.Header.JobID != id || r.Header.Stuck != 7 {
			t.Fatalf("result %s header = %+v", id, r.Header)
		}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.rows) != 2 || rec.rows[0].JobID != "a" || rec.rows[1].Stuck != 7 {
		t.Fatalf("recorded rows = %+v", rec.rows)
	}
}

func TestServerCountsFailedJobs(t *testing.T) {
	bad := smallJob("bad", 1)
	bad.Config.Radius = 0
	srv := NewServer([]Job{bad}, t.TempDir(), nil, quietLog())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	w := &Worker{URL: wsURL(ts), Name: "tester", Log: quietLog()}
	n, err := w.Run(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v", n, err)
	}
	waitDone(t, srv)
	if srv.Failed() != 1 || srv.Completed() != 0 {
		t.Fatalf("failed=%d completed=%d", srv.Failed(), srv.Completed())
	}
}

func TestCancelledWorkerJobIsRequeued(t *testing.T) {
	big := smallJob("big", 1)
	big.Config.DomainSize = 1024
	big.Config.SeedPosition = dla.Vec2{X: 512, Y: 512}
	big.Config.MaxParticles = 50000
	dla.FitResolution(&big.Config)
	srv := NewServer([]Job{big}, t.TempDir(), nil, quietLog())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	w := &Worker{URL: wsURL(ts), Name: "quitter", Log: quietLog()}
	if _, err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for srv.Pending() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("abandoned job was not requeued")
		}
		time.Sleep(10 * time.Millisecond)
	}
	select {
	case <-srv.Done():
		t.Fatal("server finished without the abandoned job")
	default:
	}
}

func TestEmptyQueueReleasesWorker(t *testing.T) {
	srv := NewServer(nil, t.TempDir(), nil, quietLog())
	select {
	case <-srv.Done():
	default:
		t.Fatal("empty queue should be done immediately")
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	w := &Worker{URL: wsURL(ts), Name: "idle", Log: quietLog()}
	n, err := w.Run(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v; want an immediate IDLE", n, err)
	}
}
