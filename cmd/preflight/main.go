// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/hamed0406/sshwatch/internal/config"
	"github.com/hamed0406/sshwatch/internal/notify"
	"github.com/hamed0406/sshwatch/internal/probe"
	"github.com/hamed0406/sshwatch/internal/repo/csvfile"
)

func main() {
	fs := pflag.NewFlagSet("preflight", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if !preflight(context.Background(), fs, os.Stdout, os.Stderr) {
		os.Exit(1)
	}
}

// preflight checks the configuration and both data files the daemon will
// read. It reports every finding and returns false if any is fatal.
func preflight(ctx context.Context, fs *pflag.FlagSet, stdout, stderr io.Writer) bool {
	passed := true
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		passed = false
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	cfg, err := config.Load(fs)
	if err != nil {
		fail(err.Error())
		return false
	}
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
	}

	delim := cfg.DelimiterRune()
	hosts, err := csvfile.NewHostFile(cfg.HostsFile, delim).Load(ctx)
	switch {
	case err != nil:
		fail(err.Error())
	case len(hosts) == 0:
		warn(cfg.HostsFile + " lists no endpoints; nothing will be monitored.")
	default:
		ok(fmt.Sprintf("%s: %d endpoint(s)", cfg.HostsFile, len(hosts)))
	}

	subs, err := csvfile.NewSubscriberFile(cfg.SubscribersFile, delim).Load(ctx)
	switch {
	case err != nil:
		fail(err.Error())
	case len(subs) == 0:
		warn(cfg.SubscribersFile + " lists no subscribers; changes will not be reported.")
	default:
		ok(fmt.Sprintf("%s: %d subscriber(s), %d master(s)", cfg.SubscribersFile, len(subs), len(notify.Masters(subs))))
		if len(notify.Masters(subs)) == 0 {
			warn("no master subscriber; nobody receives the startup message.")
		}
	}

	if cfg.SSHConfig != "" {
		if _, err := probe.LoadHostResolver(cfg.SSHConfig); err != nil {
			fail(err.Error())
		} else {
			ok("ssh config " + cfg.SSHConfig)
		}
	}

	if cfg.HTTPAddr == "" {
		warn("http-addr is empty; the HTTP status endpoints are disabled.")
	} else {
		ok("http-addr=" + cfg.HTTPAddr)
	}
	if cfg.SocksURL != "" {
		ok("SOCKS proxy " + cfg.SocksURL)
	}

	if passed {
		ok("preflight passed")
	}
	return passed
}
