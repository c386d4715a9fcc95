package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/repo"
)

// Notifier is told about every availability transition.
type Notifier interface {
	Notify(ctx context.Context, s domain.HostState) error
}

// Alerter records observations and notifies on transitions. Both
// directions (up to down, down to up) are notified.
type Alerter struct {
	store    repo.StatusStore
	notifier Notifier
	logger   *zap.Logger
}

func NewAlerter(store repo.StatusStore, notifier Notifier, logger *zap.Logger) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{store: store, notifier: notifier, logger: logger}
}

// Observe stores one probe result. It returns the new state, whether the
// availability changed and any delivery error. A delivery error never
// undoes the store update.
func (a *Alerter) Observe(ctx context.Context, ep domain.Endpoint, available bool, now time.Time) (domain.HostState, bool, error) {
	prev, _ := a.store.Get(ep.Key)
	next, changed := a.store.Update(ep, available, now)
	if !changed {
		return next, false, nil
	}

	tr, _ := domain.TransitionFrom(prev, next)
	a.logger.Info("host_transition",
		zap.String("endpoint", ep.Key.String()),
		zap.String("comment", ep.Comment),
		zap.Bool("from", tr.From),
		zap.Bool("to", tr.To),
	)

	if err := a.notifier.Notify(ctx, next); err != nil {
		a.logger.Error("notify_failed",
			zap.String("endpoint", ep.Key.String()),
			zap.String("class", serrors.Code(err)),
			zap.Error(err),
		)
		return next, true, err
	}
	return next, true, nil
}
