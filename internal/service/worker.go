package service

import (
	"cmp"
	"context"
	"time"

	"github.com/requirehit/package/internal/logging"
	"github.com/requirehit/package/internal/metrics"
	"github.com/requirehit/package/internal/progress"
	"github.com/requirehit/package/internal/storage"
	"github.com/requirehit/package/pkg/pack"
)

var (
	defaultInterval = 30 * time.Second
	errorInterval   = 30 * time.Second
)

type BuildState int

const (
	BuildStateSuccess BuildState = iota
	BuildStateDiscoveryFailed
	BuildStateBuildFailed
	BuildStatePushFailed
	BuildStateInternalError
)

func (s BuildState) String() string {
	switch s {
	case BuildStateSuccess:
		return "success"
	case BuildStateDiscoveryFailed:
		return "discovery_failed"
	case BuildStateBuildFailed:
		return "build_failed"
	case BuildStatePushFailed:
		return "push_failed"
	}
	return "internal_error"
}

type Status struct {
	State   BuildState
	Message string
}

// PackageWorker runs one package's discover, build and store cycle. Each
// Execute call re-walks the package root, rebuilds the artifact and pushes
// it to object storage, then reports when it wants to run next. It is
// designed to be driven by the deadline pool.
type PackageWorker struct {
	pkg        *pack.Package
	storage    storage.ObjectStorage
	changed    chan struct{}
	done       chan struct{}
	singleShot bool
	log        *logging.Logger
	bar        *progress.Bar
	status     Status
	interval   time.Duration
}

func NewPackageWorker(p *pack.Package, logger *logging.Logger, bar *progress.Bar) *PackageWorker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PackageWorker{
		pkg:      p,
		log:      logger,
		bar:      bar,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
		interval: defaultInterval,
	}
}

func (w *PackageWorker) WithStorage(storage storage.ObjectStorage) *PackageWorker {
	w.storage = storage
	return w
}

func (w *PackageWorker) WithSingleShot(singleShot bool) *PackageWorker {
	w.singleShot = singleShot
	return w
}

func (w *PackageWorker) WithInterval(d time.Duration) *PackageWorker {
	w.interval = cmp.Or(d, defaultInterval)
	return w
}

func (w *PackageWorker) Done() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *PackageWorker) Status() Status {
	return w.status
}

// Shutdown asks the worker to leave the pool on its next execution.
func (w *PackageWorker) Shutdown() {
	select {
	case <-w.changed:
	default:
		close(w.changed)
	}
}

// Execute runs one iteration: re-discover the package content, rebuild the
// artifact and push it to object storage. It returns the deadline for the
// next run, or the zero time to leave the pool.
func (w *PackageWorker) Execute(ctx context.Context) time.Time {
	startTime := time.Now()

	defer w.bar.Add(1)

	if w.shutdownRequested() {
		return w.die()
	}

	records, err := w.pkg.Rediscover(ctx)
	if err != nil {
		w.log.Warnf("failed to discover content for package %q: %v", w.pkg.Name(), err)
		return w.report(BuildStateDiscoveryFailed, startTime, err)
	}
	metrics.DiscoveredFiles.WithLabelValues(w.pkg.Name()).Set(float64(len(records)))

	a, err := w.pkg.Build(ctx)
	if err != nil {
		w.log.Warnf("failed to build package %q: %v", w.pkg.Name(), err)
		return w.report(BuildStateBuildFailed, startTime, err)
	}

	if w.storage != nil {
		if err := w.pkg.Store(ctx, w.storage); err != nil {
			w.log.Warnf("failed to upload package %q: %v", w.pkg.Name(), err)
			return w.report(BuildStatePushFailed, startTime, err)
		}

		w.log.Debugf("Package %q built and uploaded at revision %s.", w.pkg.Name(), a.Revision)
		return w.report(BuildStateSuccess, startTime, nil)
	}

	w.log.Debugf("Package %q built at revision %s.", w.pkg.Name(), a.Revision)
	return w.report(BuildStateSuccess, startTime, nil)
}

func (w *PackageWorker) report(state BuildState, startTime time.Time, err error) time.Time {
	interval := w.interval
	w.status.State = state
	if err != nil {
		interval = errorInterval // faster retry on error
		w.status.Message = err.Error()
	}

	if state == BuildStateSuccess {
		metrics.PackageBuildSucceeded(w.pkg.Name(), startTime)
	} else {
		metrics.PackageBuildFailure(w.pkg.Name(), state.String())
	}

	if w.singleShot {
		return w.die()
	}

	return time.Now().Add(interval)
}

func (w *PackageWorker) shutdownRequested() bool {
	select {
	case <-w.changed:
		return true
	default:
		return false
	}
}

func (w *PackageWorker) die() time.Time {
	close(w.done)

	var zero time.Time
	return zero
}
