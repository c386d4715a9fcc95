// Package app wires the monitor, the chat listener and the optional HTTP
// surface together and runs them until the context ends.
package app

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/config"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/httpapi"
	"github.com/hamed0406/sshwatch/internal/notify"
	"github.com/hamed0406/sshwatch/internal/probe"
	"github.com/hamed0406/sshwatch/internal/query"
	"github.com/hamed0406/sshwatch/internal/report"
	"github.com/hamed0406/sshwatch/internal/repo/csvfile"
	"github.com/hamed0406/sshwatch/internal/repo/memory"
	"github.com/hamed0406/sshwatch/internal/scheduler"
	"github.com/hamed0406/sshwatch/internal/telegram"
)

// Transport is the chat side: sending, receiving and the bot's own name.
type Transport interface {
	notify.Sender
	Username() string
	Listen(ctx context.Context, handle telegram.HandlerFunc) error
}

type App struct {
	cfg       config.Config
	logger    *zap.Logger
	transport Transport

	format      report.Formatter
	store       *memory.Store
	broadcaster *notify.Broadcaster
	queries     *query.Handler
	monitor     *scheduler.Monitor
	status      *httpapi.Server

	// Instance names this process in the startup message.
	Instance string
}

// New assembles the components. checker performs single probe attempts.
func New(cfg config.Config, logger *zap.Logger, transport Transport, checker probe.Checker) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	delim := cfg.DelimiterRune()
	hosts := csvfile.NewHostFile(cfg.HostsFile, delim)
	subs := csvfile.NewSubscriberFile(cfg.SubscribersFile, delim)

	chatFormat := report.Formatter{Escape: telegram.EscapeMarkdown}
	store := memory.New()

	b := notify.NewBroadcaster(transport, subs, chatFormat, notify.Config{
		Attempts: cfg.SendAttempts,
		Backoff:  cfg.SendBackoff,
		Delay:    cfg.SendDelay,
	}, logger.Named("notify"))

	prober := probe.NewProber(checker, cfg.ProbeAttempts, cfg.ProbeBackoff, logger.Named("probe"))
	alerter := scheduler.NewAlerter(store, b, logger.Named("alerter"))
	monitor := scheduler.NewMonitor(logger.Named("monitor"), hosts, prober, alerter, store, cfg.Interval, cfg.Prune)

	instance, _ := os.Hostname()
	return &App{
		cfg:         cfg,
		logger:      logger,
		transport:   transport,
		format:      chatFormat,
		store:       store,
		broadcaster: b,
		queries:     query.NewHandler(store, b, chatFormat, transport.Username(), logger.Named("query")),
		monitor:     monitor,
		status:      httpapi.NewServer(logger.Named("http"), store, report.Formatter{}),
		Instance:    instance,
	}
}

// Run announces liveness to masters, starts the listener and the HTTP
// server, then runs the monitor loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.broadcaster.Announce(ctx, a.format.Liveness(a.Instance)); err != nil {
		a.logger.Warn("liveness_failed", zap.String("class", serrors.Code(err)), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := a.transport.Listen(ctx, a.queries.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("listener_stopped", zap.String("class", serrors.ErrTransport), zap.Error(err))
		}
	}()

	if a.cfg.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := a.status.Router(a.cfg.HTTPRPM, a.cfg.HTTPBurst)
			if err := httpapi.ListenAndServe(ctx, a.cfg.HTTPAddr, h, a.logger.Named("http")); err != nil {
				a.logger.Error("http_failed", zap.Error(err))
			}
		}()
	}

	err := a.monitor.Run(ctx)
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
