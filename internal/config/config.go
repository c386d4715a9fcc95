package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

// EnvPrefix namespaces every key in the environment, e.g. SSHWATCH_HOSTS_FILE.
const EnvPrefix = "SSHWATCH"

// Keys shared by flags, environment and the config file.
const (
	KeyConfig          = "config"
	KeyToken           = "token"
	KeyInterval        = "interval"
	KeyHostsFile       = "hosts-file"
	KeySubscribersFile = "subscribers-file"
	KeyDelimiter       = "delimiter"
	KeyProbeAttempts   = "probe-attempts"
	KeyProbeBackoff    = "probe-backoff"
	KeyProbeTimeout    = "probe-timeout"
	KeyProbeUser       = "probe-user"
	KeyProbePassword   = "probe-password"
	KeySSHConfig       = "ssh-config"
	KeySendAttempts    = "send-attempts"
	KeySendBackoff     = "send-backoff"
	KeySendDelay       = "send-delay"
	KeyPrune           = "prune"
	KeyHTTPAddr        = "http-addr"
	KeyHTTPRPM         = "http-rpm"
	KeyHTTPBurst       = "http-burst"
	KeyLogDir          = "log-dir"
	KeyLogLevel        = "log-level"
	KeySocksURL        = "socks-url"
	KeySocksUsername   = "socks-username"
	KeySocksPassword   = "socks-password"
)

// Environment names kept for compatibility with existing deployments.
var legacyEnv = map[string]string{
	KeyToken:         "TELEGRAM_TOKEN",
	KeySocksURL:      "SOCKS_URL",
	KeySocksUsername: "SOCKS_USERNAME",
	KeySocksPassword: "SOCKS_PASSWORD",
}

type Config struct {
	Token           string        `mapstructure:"token"`
	Interval        time.Duration `mapstructure:"interval"`         // pause between monitoring cycles
	HostsFile       string        `mapstructure:"hosts-file"`       // endpoint registry
	SubscribersFile string        `mapstructure:"subscribers-file"` // chat ids, optional master column
	Delimiter       string        `mapstructure:"delimiter"`        // field separator of both files

	ProbeAttempts int           `mapstructure:"probe-attempts"`
	ProbeBackoff  time.Duration `mapstructure:"probe-backoff"`
	ProbeTimeout  time.Duration `mapstructure:"probe-timeout"` // per connection attempt
	ProbeUser     string        `mapstructure:"probe-user"`
	ProbePassword string        `mapstructure:"probe-password"` // must be rejected by every host
	SSHConfig     string        `mapstructure:"ssh-config"`     // optional ssh_config for host aliases

	SendAttempts int           `mapstructure:"send-attempts"`
	SendBackoff  time.Duration `mapstructure:"send-backoff"`
	SendDelay    time.Duration `mapstructure:"send-delay"` // minimum gap between two chat messages

	Prune bool `mapstructure:"prune"`

	HTTPAddr  string `mapstructure:"http-addr"` // empty disables the HTTP surface
	HTTPRPM   int    `mapstructure:"http-rpm"`
	HTTPBurst int    `mapstructure:"http-burst"`

	LogDir   string `mapstructure:"log-dir"`
	LogLevel string `mapstructure:"log-level"`

	SocksURL      string `mapstructure:"socks-url"`
	SocksUsername string `mapstructure:"socks-username"`
	SocksPassword string `mapstructure:"socks-password"`
}

func Defaults() Config {
	return Config{
		Interval:        5 * time.Minute,
		HostsFile:       "hosts.csv",
		SubscribersFile: "admins.csv",
		Delimiter:       ";",
		ProbeAttempts:   3,
		ProbeBackoff:    10 * time.Second,
		ProbeTimeout:    10 * time.Second,
		ProbeUser:       "sshwatch-probe",
		ProbePassword:   "sshwatch-wrong-password",
		SendAttempts:    3,
		SendBackoff:     10 * time.Second,
		SendDelay:       5 * time.Second,
		Prune:           true,
		HTTPRPM:         120,
		HTTPBurst:       60,
		LogDir:          "logs",
		LogLevel:        "info",
	}
}

// RegisterFlags defines one flag per key on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(KeyConfig, "", "optional config file (yaml, toml or json)")
	fs.StringP(KeyToken, "t", "", "Telegram bot token")
	durationFlag(fs, KeyInterval, "s", d.Interval, "pause between monitoring cycles")
	fs.String(KeyHostsFile, d.HostsFile, "endpoint registry file")
	fs.String(KeySubscribersFile, d.SubscribersFile, "subscriber file")
	fs.String(KeyDelimiter, d.Delimiter, "field delimiter of the registry and subscriber files")
	fs.Int(KeyProbeAttempts, d.ProbeAttempts, "connection attempts per endpoint and cycle")
	durationFlag(fs, KeyProbeBackoff, "", d.ProbeBackoff, "wait between probe attempts")
	durationFlag(fs, KeyProbeTimeout, "", d.ProbeTimeout, "timeout of one probe attempt")
	fs.String(KeyProbeUser, d.ProbeUser, "user name offered by the probe")
	fs.String(KeyProbePassword, d.ProbePassword, "password offered by the probe; hosts must reject it")
	fs.String(KeySSHConfig, "", "ssh_config file used to resolve host aliases")
	fs.Int(KeySendAttempts, d.SendAttempts, "delivery attempts per chat message")
	durationFlag(fs, KeySendBackoff, "", d.SendBackoff, "wait between delivery attempts")
	durationFlag(fs, KeySendDelay, "", d.SendDelay, "minimum gap between two chat messages")
	fs.Bool(KeyPrune, d.Prune, "forget endpoints removed from the registry")
	fs.String(KeyHTTPAddr, "", "serve status over HTTP on this address")
	fs.Int(KeyHTTPRPM, d.HTTPRPM, "HTTP requests per minute per client")
	fs.Int(KeyHTTPBurst, d.HTTPBurst, "HTTP burst per client")
	fs.String(KeyLogDir, d.LogDir, "directory for the rotating log file")
	fs.String(KeyLogLevel, d.LogLevel, "debug, info, warn or error")
	fs.String(KeySocksURL, "", "SOCKS5 proxy for the Telegram API, e.g. socks5://host:1080")
	fs.String(KeySocksUsername, "", "SOCKS5 user name")
	fs.String(KeySocksPassword, "", "SOCKS5 password")
}

// Load resolves the configuration from flags, environment, the optional
// config file and defaults, in that order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault(KeyInterval, d.Interval)
	v.SetDefault(KeyHostsFile, d.HostsFile)
	v.SetDefault(KeySubscribersFile, d.SubscribersFile)
	v.SetDefault(KeyDelimiter, d.Delimiter)
	v.SetDefault(KeyProbeAttempts, d.ProbeAttempts)
	v.SetDefault(KeyProbeBackoff, d.ProbeBackoff)
	v.SetDefault(KeyProbeTimeout, d.ProbeTimeout)
	v.SetDefault(KeyProbeUser, d.ProbeUser)
	v.SetDefault(KeyProbePassword, d.ProbePassword)
	v.SetDefault(KeySSHConfig, "")
	v.SetDefault(KeySendAttempts, d.SendAttempts)
	v.SetDefault(KeySendBackoff, d.SendBackoff)
	v.SetDefault(KeySendDelay, d.SendDelay)
	v.SetDefault(KeyPrune, d.Prune)
	v.SetDefault(KeyHTTPAddr, "")
	v.SetDefault(KeyHTTPRPM, d.HTTPRPM)
	v.SetDefault(KeyHTTPBurst, d.HTTPBurst)
	v.SetDefault(KeyLogDir, d.LogDir)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, serrors.WrapWithCode(err, serrors.ErrConfig, "Cannot bind "+legacy, "")
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, serrors.WrapWithCode(err, serrors.ErrConfig, "Cannot bind flags", "")
		}
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, serrors.WrapWithCode(err, serrors.ErrConfig,
				"Failed to read config file "+path,
				"Check the file exists and is valid YAML, TOML or JSON")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return Config{}, serrors.WrapWithCode(err, serrors.ErrConfig,
			"Invalid configuration", "Durations are seconds or carry a unit, e.g. 300, 300s or 5m")
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs error
	add := func(key, msg string) {
		errs = multierr.Append(errs, serrors.New(serrors.ErrConfig, key+": "+msg, ""))
	}

	if c.Token == "" {
		add(KeyToken, "required; pass --token or set TELEGRAM_TOKEN")
	}
	if c.Interval <= 0 {
		add(KeyInterval, "must be positive")
	}
	if c.HostsFile == "" {
		add(KeyHostsFile, "required")
	}
	if c.SubscribersFile == "" {
		add(KeySubscribersFile, "required")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		add(KeyDelimiter, fmt.Sprintf("must be a single character, got %q", c.Delimiter))
	}
	if c.ProbeAttempts < 1 {
		add(KeyProbeAttempts, "must be at least 1")
	}
	if c.ProbeBackoff < 0 {
		add(KeyProbeBackoff, "must not be negative")
	}
	if c.ProbeTimeout <= 0 {
		add(KeyProbeTimeout, "must be positive")
	}
	if c.SendAttempts < 1 {
		add(KeySendAttempts, "must be at least 1")
	}
	if c.SendBackoff < 0 || c.SendDelay < 0 {
		add(KeySendBackoff, "send backoff and delay must not be negative")
	}
	if c.HTTPAddr != "" && (c.HTTPRPM < 1 || c.HTTPBurst < 1) {
		add(KeyHTTPRPM, "http-rpm and http-burst must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		add(KeyLogLevel, err.Error())
	}
	return errs
}

// DelimiterRune is the first rune of Delimiter, or 0 when unset.
func (c Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}
