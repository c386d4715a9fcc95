package app

import (
	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/config"
	"github.com/hamed0406/sshwatch/internal/probe"
	"github.com/hamed0406/sshwatch/internal/telegram"
)

// Build connects to Telegram and sets up the SSH checker described by cfg.
// cfg must already be valid.
func Build(cfg config.Config, logger *zap.Logger) (*App, error) {
	client, err := telegram.NewHTTPClient(telegram.ProxyConfig{
		URL:      cfg.SocksURL,
		Username: cfg.SocksUsername,
		Password: cfg.SocksPassword,
	})
	if err != nil {
		return nil, err
	}
	bot, err := telegram.New(cfg.Token, "", client, logger.Named("telegram"))
	if err != nil {
		return nil, err
	}
	logger.Info("telegram_authorized", zap.String("bot", bot.Username()))

	var resolver *probe.HostResolver
	if cfg.SSHConfig != "" {
		if resolver, err = probe.LoadHostResolver(cfg.SSHConfig); err != nil {
			return nil, err
		}
	}
	checker := probe.NewSSHChecker(cfg.ProbeUser, cfg.ProbePassword, cfg.ProbeTimeout, resolver, logger.Named("ssh"))

	return New(cfg, logger, bot, checker), nil
}
