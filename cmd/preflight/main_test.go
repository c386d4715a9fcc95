package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/sshwatch/internal/config"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("preflight", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestPreflight_Passes(t *testing.T) {
	dir := t.TempDir()
	hosts := write(t, dir, "hosts.csv", "local_ip;local_port;remote_ip;remote_port;comment\n127.0.0.1;2201;10.0.0.1;22;web\n")
	subs := write(t, dir, "admins.csv", "chat_id;master\n42;1\n")

	var out, errOut bytes.Buffer
	ok := preflight(context.Background(),
		flags(t, "-t", "123:abc", "--hosts-file", hosts, "--subscribers-file", subs),
		&out, &errOut)

	assert.True(t, ok, errOut.String())
	assert.Contains(t, out.String(), "1 endpoint(s)")
	assert.Contains(t, out.String(), "1 master(s)")
	assert.Contains(t, out.String(), "preflight passed")
}

func TestPreflight_FailsAndWarns(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	dir := t.TempDir()
	hosts := write(t, dir, "hosts.csv", "local_ip;local_port;remote_ip;remote_port;comment\n127.0.0.1;99999;10.0.0.1;22;web\n")
	subs := write(t, dir, "admins.csv", "chat_id\n42\n")

	var out, errOut bytes.Buffer
	ok := preflight(context.Background(),
		flags(t, "--hosts-file", hosts, "--subscribers-file", subs),
		&out, &errOut)

	assert.False(t, ok)
	assert.Contains(t, errOut.String(), "token")
	assert.Contains(t, errOut.String(), "local_port")
	assert.Contains(t, errOut.String(), "no master subscriber")
	assert.NotContains(t, out.String(), "preflight passed")
}
