// internal/probe/retrychecker.go
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/retry"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 10 * time.Second
)

// Prober decides whether an endpoint is available in this cycle by
// running its Checker up to Policy.Attempts times.
type Prober struct {
	Checker Checker
	Policy  retry.Policy
	Logger  *zap.Logger
}

func NewProber(c Checker, attempts int, backoff time.Duration, logger *zap.Logger) *Prober {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		Checker: c,
		Policy:  retry.Policy{Attempts: attempts, Backoff: backoff},
		Logger:  logger,
	}
}

// Probe returns true on the first reachable outcome. Running out of
// attempts means unreachable, not an error.
func (p *Prober) Probe(ctx context.Context, ep domain.Endpoint) bool {
	err := p.Policy.Do(ctx, func(ctx context.Context, attempt int) error {
		out := p.Checker.Check(ctx, ep)
		if out.Reachable {
			p.Logger.Debug("probe_ok",
				zap.String("endpoint", ep.Key.String()),
				zap.String("comment", ep.Comment),
				zap.Int("attempt", attempt),
				zap.String("reason", string(out.Reason)),
				zap.Duration("latency", out.Latency),
			)
			return nil
		}
		p.Logger.Warn("probe_attempt_failed",
			zap.String("endpoint", ep.Key.String()),
			zap.String("comment", ep.Comment),
			zap.Int("attempt", attempt),
			zap.Int("attempts", p.Policy.Attempts),
			zap.String("reason", string(out.Reason)),
			zap.String("class", serrors.ErrProbe),
			zap.Error(out.Err),
		)
		if out.Reason == ReasonCanceled {
			return retry.Permanent(serrors.WrapWithCode(out.Err, serrors.ErrProbe, "probe canceled", ""))
		}
		return serrors.WrapWithCode(out.Err, serrors.ErrProbe, "attempt failed: "+string(out.Reason), "")
	})
	if err != nil {
		p.Logger.Info("probe_unreachable",
			zap.String("endpoint", ep.Key.String()),
			zap.String("comment", ep.Comment),
			zap.NamedError("last_error", err),
		)
		return false
	}
	return true
}
