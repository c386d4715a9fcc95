package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
)

// parseDuration accepts Go durations ("5m", "300s") and bare integers,
// which count seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// durationValue is a pflag.Value for durations that also takes seconds.
type durationValue time.Duration

var _ pflag.Value = (*durationValue)(nil)

func (d *durationValue) Set(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = durationValue(v)
	return nil
}

// String is read back by viper, so it stays in time.ParseDuration form.
func (d *durationValue) String() string { return time.Duration(*d).String() }

func (d *durationValue) Type() string { return "duration" }

func durationFlag(fs *pflag.FlagSet, name, short string, def time.Duration, usage string) {
	v := durationValue(def)
	fs.VarP(&v, name, short, usage+" (a bare number counts seconds)")
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsHook decodes bare numbers from the environment or a config file
// into durations of that many seconds.
func secondsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return parseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsHook,
		mapstructure.StringToSliceHookFunc(","),
	)
}
