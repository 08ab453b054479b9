// Package service drives periodic package builds: a deadline pool executes
// one PackageWorker per package, each cycling through discover, build and
// store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/requirehit/package/internal/logging"
	"github.com/requirehit/package/internal/pool"
	"github.com/requirehit/package/internal/progress"
	"github.com/requirehit/package/internal/storage"
	"github.com/requirehit/package/pkg/pack"
)

// Selector picks packages by name. An empty selector matches everything.
type Selector []glob.Glob

func NewSelector(patterns []string) (Selector, error) {
	s := make(Selector, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid package selector %q: %w", p, err)
		}
		s = append(s, g)
	}
	return s, nil
}

func (s Selector) Match(name string) bool {
	if len(s) == 0 {
		return true
	}
	for _, g := range s {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Service owns the worker pool and one worker per selected package.
type Service struct {
	log        *logging.Logger
	bar        *progress.Bar
	pool       *pool.Pool
	workers    map[string]*PackageWorker
	selector   Selector
	interval   time.Duration
	singleShot bool
	numWorkers int
}

func New() *Service {
	return &Service{
		log:        logging.NewNop(),
		workers:    map[string]*PackageWorker{},
		interval:   defaultInterval,
		numWorkers: 4,
	}
}

func (s *Service) WithLogger(log *logging.Logger) *Service {
	s.log = log
	return s
}

func (s *Service) WithProgress(bar *progress.Bar) *Service {
	s.bar = bar
	return s
}

func (s *Service) WithSelector(selector Selector) *Service {
	s.selector = selector
	return s
}

func (s *Service) WithInterval(d time.Duration) *Service {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Service) WithSingleShot(singleShot bool) *Service {
	s.singleShot = singleShot
	return s
}

func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.numWorkers = n
	}
	return s
}

// Add registers a package with the service. Packages not matching the
// selector are skipped. The storage backend may be nil, in which case the
// package is built but not uploaded.
func (s *Service) Add(p *pack.Package, store storage.ObjectStorage) {
	if !s.selector.Match(p.Name()) {
		s.log.Debugf("Package %q does not match the selector, skipping.", p.Name())
		return
	}

	s.workers[p.Name()] = NewPackageWorker(p, s.log, s.bar).
		WithStorage(store).
		WithSingleShot(s.singleShot).
		WithInterval(s.interval)
}

// Trigger makes the named package build now instead of at its next deadline.
func (s *Service) Trigger(name string) error {
	if s.pool == nil {
		return fmt.Errorf("service not running")
	}
	return s.pool.Trigger(name)
}

// Run starts the pool and blocks until the context is cancelled or, in
// single-shot mode, until every worker has finished.
func (s *Service) Run(ctx context.Context) error {
	s.pool = pool.New(s.numWorkers)
	s.bar.AddMax(len(s.workers))

	for name, w := range s.workers {
		s.pool.Add(name, w.Execute)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.singleShot {
				continue
			}
			done := true
			for _, w := range s.workers {
				done = done && w.Done()
			}
			if done {
				s.bar.Finish()
				return s.failures()
			}
		}
	}
}

func (s *Service) failures() error {
	for name, w := range s.workers {
		if st := w.Status(); st.State != BuildStateSuccess {
			return fmt.Errorf("package %q: %s: %s", name, st.State, st.Message)
		}
	}
	return nil
}
