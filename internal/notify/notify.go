// Package notify delivers chat messages to subscribers with bounded
// retries and a pause between sends.
package notify

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/repo"
	"github.com/hamed0406/sshwatch/internal/retry"
)

const (
	DefaultSendAttempts = 3
	DefaultSendBackoff  = 10 * time.Second
	DefaultSendDelay    = 5 * time.Second
)

// Sender posts one message to one chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Config struct {
	Attempts int
	Backoff  time.Duration
	// Delay is the minimum spacing between two sends. Zero disables it.
	Delay time.Duration
}

type Broadcaster struct {
	sender      Sender
	subscribers repo.SubscriberSource
	policy      retry.Policy
	limiter     *rate.Limiter
	format      report.Formatter
	logger      *zap.Logger
}

func NewBroadcaster(
	sender Sender,
	subscribers repo.SubscriberSource,
	format report.Formatter,
	cfg Config,
	logger *zap.Logger,
) *Broadcaster {
	if cfg.Attempts < 1 {
		cfg.Attempts = DefaultSendAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Broadcaster{
		sender:      sender,
		subscribers: subscribers,
		policy:      retry.Policy{Attempts: cfg.Attempts, Backoff: cfg.Backoff},
		limiter:     rate.NewLimiter(limit, 1),
		format:      format,
		logger:      logger,
	}
}

// Notify tells every subscriber that s changed availability.
func (b *Broadcaster) Notify(ctx context.Context, s domain.HostState) error {
	subs, err := b.subscribers.Load(ctx)
	if err != nil {
		return err
	}
	return b.fanOut(ctx, subs, b.format.Change(s))
}

// Announce sends text to master subscribers only.
func (b *Broadcaster) Announce(ctx context.Context, text string) error {
	subs, err := b.subscribers.Load(ctx)
	if err != nil {
		return err
	}
	return b.fanOut(ctx, Masters(subs), text)
}

func (b *Broadcaster) fanOut(ctx context.Context, subs []domain.Subscriber, text string) error {
	var errs error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, b.Deliver(ctx, s.ChatID, text))
	}
	return errs
}

// Deliver sends text to one chat, retrying transient failures.
func (b *Broadcaster) Deliver(ctx context.Context, chatID int64, text string) error {
	err := b.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := b.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		err := b.sender.Send(ctx, chatID, text)
		if err != nil {
			b.logger.Warn("send_attempt_failed",
				zap.Int64("chat_id", chatID),
				zap.Int("attempt", attempt),
				zap.Int("attempts", b.policy.Attempts),
				zap.String("class", serrors.ErrTransport),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		b.logger.Error("send_failed",
			zap.Int64("chat_id", chatID),
			zap.String("class", serrors.ErrTransport),
			zap.Error(err),
		)
		if !serrors.IsCode(err, serrors.ErrTransport) {
			err = serrors.WrapWithCode(err, serrors.ErrTransport, "delivery failed", "")
		}
		return err
	}
	b.logger.Debug("send_ok", zap.Int64("chat_id", chatID))
	return nil
}

// Masters filters the subscribers flagged as master.
func Masters(subs []domain.Subscriber) []domain.Subscriber {
	var out []domain.Subscriber
	for _, s := range subs {
		if s.Master {
			out = append(out, s)
		}
	}
	return out
}
