package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var Logger = logrus.WithFields(logrus.Fields{"prefix": "config"})

// LoadConfig reads cfgfile (any format viper knows by extension) with
// MATRIXMIRROR_* environment variables taking precedence. An empty cfgfile
// uses defaults and the environment only.
func LoadConfig(cfgfile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("matrixmirror")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// use environment variables
	v.AutomaticEnv()

	if cfgfile == "" {
		return v, nil
	}

	v.SetConfigFile(cfgfile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s", err)
	}

	// reload config on file changes
	if runtime.GOOS != "illumos" {
		v.OnConfigChange(func(e fsnotify.Event) {
			level := LogLevel(v)
			Logger.Infof("config file %s changed, log level %s", e.Name, level)
			Logger.Logger.SetLevel(level)
		})
		v.WatchConfig()
	}

	return v, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("matrix.synctimeout", 30*time.Second)
	v.SetDefault("matrix.syncerrordelay", 5*time.Second)
	v.SetDefault("matrix.dedupsize", 50000)
	v.SetDefault("matrix.wrap", 0)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.tlscert", "")
	v.SetDefault("metrics.tlskey", "")
	v.SetDefault("debug", false)
	v.SetDefault("trace", false)
	v.SetDefault("gops", false)
}

// LogLevel maps the debug and trace settings to a logrus level, trace wins.
func LogLevel(v *viper.Viper) logrus.Level {
	switch {
	case v.GetBool("trace"):
		return logrus.TraceLevel
	case v.GetBool("debug"):
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
