// Package jobs distributes aggregate runs to remote workers over websockets.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"dla-grow/internal/results"
	"dla-grow/internal/sims/dla"
)

// Job is one aggregate to grow.
type Job struct {
	ID     string     `yaml:"id" json:"id"`
	Config dla.Config `yaml:"config" json:"config"`
}

// ErrJobList is wrapped by every LoadJobs validation failure.
var ErrJobList = errors.New("jobs: invalid job list")

type jobEntry struct {
	ID             string    `yaml:"id"`
	Repeat         int       `yaml:"repeat"`
	AutoResolution bool      `yaml:"auto_resolution"`
	Config         yaml.Node `yaml:"config"`
}

type jobFile struct {
	Defaults yaml.Node  `yaml:"defaults"`
	Jobs     []jobEntry `yaml:"jobs"`
}

// LoadJobs reads a YAML job list. Each job's config is layered over
// dla.DefaultConfig and the file's defaults block. A job with repeat n
// expands into n jobs "<id>-<i>" whose seeds count up from the configured
// one. Unless a seed_position is given the seed sits at the domain centre.
func LoadJobs(path string) ([]Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f jobFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var out []Job
	seen := map[string]bool{}
	add := func(j Job) error {
		if seen[j.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrJobList, j.ID)
		}
		if err := j.Config.Validate(); err != nil {
			return fmt.Errorf("%w: job %q: %v", ErrJobList, j.ID, err)
		}
		seen[j.ID] = true
		out = append(out, j)
		return nil
	}

	for i, e := range f.Jobs {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: job %d has no id", ErrJobList, i)
		}
		c := dla.DefaultConfig()
		for _, n := range []*yaml.Node{&f.Defaults, &e.Config} {
			if n.Kind == 0 {
				continue
			}
			if err := n.Decode(&c); err != nil {
				return nil, fmt.Errorf("%w: job %q: %v", ErrJobList, e.ID, err)
			}
		}
		if !hasKey(&f.Defaults, "seed_position") && !hasKey(&e.Config, "seed_position") {
			c.SeedPosition = dla.Vec2{X: c.DomainSize / 2, Y: c.DomainSize / 2}
		}
		if e.AutoResolution {
			dla.FitResolution(&c)
		}

		if e.Repeat <= 1 {
			if err := add(Job{ID: e.ID, Config: c}); err != nil {
				return nil, err
			}
			continue
		}
		for k := 0; k < e.Repeat; k++ {
			rc := c
			rc.Seed = c.Seed + int64(k)
			if err := add(Job{ID: fmt.Sprintf("%s-%d", e.ID, k), Config: rc}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func hasKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Execute grows job's aggregate to completion, checking ctx between steps.
func Execute(ctx context.Context, job Job, log logrus.FieldLogger) (results.Result, error) {
	return ExecuteReporting(ctx, job, log, 0, nil)
}

// ExecuteReporting is Execute with report called every n steps.
func ExecuteReporting(ctx context.Context, job Job, log logrus.FieldLogger, every int, report func(*dla.Simulation)) (results.Result, error) {
	start := time.Now()
	s, err := dla.NewWithConfig(job.Config, dla.WithLogger(log))
	if err != nil {
		return results.Result{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return results.Result{}, err
		}
		res, err := s.Step()
		if err != nil {
			return results.Result{}, fmt.Errorf("job %s: %w", job.ID, err)
		}
		if res == dla.Complete {
			break
		}
		if report != nil && every > 0 && s.Iteration()%every == 0 {
			report(s)
		}
	}
	return results.FromSimulation(job.ID, s, time.Since(start)), nil
}
