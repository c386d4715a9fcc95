package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/repo"
	"github.com/hamed0406/sshwatch/internal/retry"
)

const DefaultInterval = 300 * time.Second

// Prober decides whether an endpoint is available in this cycle.
type Prober interface {
	Probe(ctx context.Context, ep domain.Endpoint) bool
}

// CycleReport summarizes one pass over the registry.
type CycleReport struct {
	Endpoints    int
	Up           int
	Down         int
	Transitions  int
	NotifyErrors int
	Pruned       int
	// LoadErr is set when the registry could not be read; nothing else
	// happened in that cycle.
	LoadErr error
}

// Monitor probes every registered endpoint in order, records the results
// and sleeps for Interval between cycles.
type Monitor struct {
	Logger    *zap.Logger
	Endpoints repo.EndpointSource
	Prober    Prober
	Alerter   *Alerter
	Store     repo.StatusStore
	Interval  time.Duration
	// Prune drops store entries for endpoints no longer in the registry.
	Prune bool

	Sleep retry.SleepFunc
	Now   func() time.Time
}

func NewMonitor(
	logger *zap.Logger,
	endpoints repo.EndpointSource,
	prober Prober,
	alerter *Alerter,
	store repo.StatusStore,
	interval time.Duration,
	prune bool,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		Logger:    logger,
		Endpoints: endpoints,
		Prober:    prober,
		Alerter:   alerter,
		Store:     store,
		Interval:  interval,
		Prune:     prune,
		Sleep:     retry.Sleep,
		Now:       time.Now,
	}
}

// Run does an immediate cycle, then one cycle after each Interval.
// Stops when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Logger.Info("monitor_started", zap.Duration("interval", m.Interval))
	for {
		rep := m.RunCycle(ctx)
		if rep.LoadErr == nil {
			m.Logger.Info("cycle_done",
				zap.Int("endpoints", rep.Endpoints),
				zap.Int("up", rep.Up),
				zap.Int("down", rep.Down),
				zap.Int("transitions", rep.Transitions),
				zap.Int("notify_errors", rep.NotifyErrors),
				zap.Int("pruned", rep.Pruned),
			)
		}
		if err := m.Sleep(ctx, m.Interval); err != nil {
			m.Logger.Info("monitor_stopped")
			return ctx.Err()
		}
	}
}

// RunCycle performs one pass. A registry load failure leaves the store
// untouched.
func (m *Monitor) RunCycle(ctx context.Context) CycleReport {
	var rep CycleReport

	eps, err := m.Endpoints.Load(ctx)
	if err != nil {
		m.Logger.Error("registry_load_failed",
			zap.String("class", serrors.Code(err)),
			zap.Error(err),
		)
		rep.LoadErr = err
		return rep
	}

	keep := make([]domain.EndpointKey, 0, len(eps))
	for _, ep := range eps {
		if ctx.Err() != nil {
			// Partial cycle; skip pruning so unprobed endpoints survive.
			return rep
		}
		keep = append(keep, ep.Key)
		rep.Endpoints++

		available := m.Prober.Probe(ctx, ep)
		if ctx.Err() != nil {
			return rep
		}
		if available {
			rep.Up++
		} else {
			rep.Down++
		}

		_, changed, err := m.Alerter.Observe(ctx, ep, available, m.Now())
		if changed {
			rep.Transitions++
		}
		if err != nil {
			rep.NotifyErrors++
		}
	}

	if m.Prune {
		rep.Pruned = m.Store.Prune(keep)
		if rep.Pruned > 0 {
			m.Logger.Info("store_pruned", zap.Int("removed", rep.Pruned))
		}
	}
	return rep
}
