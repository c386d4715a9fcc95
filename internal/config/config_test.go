package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	want := Defaults()
	assert.Equal(t, want, cfg)
	assert.Equal(t, ';', cfg.DelimiterRune())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("SSHWATCH_HOSTS_FILE", "/etc/sshwatch/hosts.csv")
	t.Setenv("SSHWATCH_INTERVAL", "30s")

	cfg, err := Load(newFlags(t, "-t", "from-flag", "-s", "1m", "--prune=false"))
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Token)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, "/etc/sshwatch/hosts.csv", cfg.HostsFile)
	assert.False(t, cfg.Prune)
}

func TestLoad_BareNumbersAreSeconds(t *testing.T) {
	t.Setenv("SSHWATCH_SEND_DELAY", "7")

	cfg, err := Load(newFlags(t, "-s", "300", "--probe-backoff", "2m"))
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Minute, cfg.ProbeBackoff)
	assert.Equal(t, 7*time.Second, cfg.SendDelay)

	t.Setenv("SSHWATCH_INTERVAL", "120")
	cfg, err = Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.Interval)
}

func TestLoad_BadDuration(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.Error(t, fs.Parse([]string{"-s", "soon"}))

	t.Setenv("SSHWATCH_INTERVAL", "soon")
	_, err := Load(newFlags(t))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrConfig))
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SOCKS_URL", "socks5://proxy:1080")
	t.Setenv("SOCKS_USERNAME", "u")
	t.Setenv("SOCKS_PASSWORD", "p")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, "socks5://proxy:1080", cfg.SocksURL)
	assert.Equal(t, "u", cfg.SocksUsername)
	assert.Equal(t, "p", cfg.SocksPassword)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"token: file-token\nsend-delay: 2s\nprobe-timeout: 15\nhttp-addr: 127.0.0.1:8080\ndelimiter: ','\n"), 0o600))

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Token)
	assert.Equal(t, 2*time.Second, cfg.SendDelay)
	assert.Equal(t, 15*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, ',', cfg.DelimiterRune())
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrConfig))
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Token = "x"
	require.NoError(t, cfg.Validate())

	bad := Defaults()
	bad.Delimiter = ";;"
	bad.ProbeAttempts = 0
	bad.HTTPAddr = ":8080"
	bad.HTTPRPM = 0
	bad.LogLevel = "loud"

	err := bad.Validate()
	require.Error(t, err)
	// token, delimiter, probe-attempts, http-rpm, log-level
	assert.Len(t, multierr.Errors(err), 5)
	for _, e := range multierr.Errors(err) {
		assert.True(t, serrors.IsCode(e, serrors.ErrConfig), e.Error())
	}
}
