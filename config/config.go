// Package config loads the coordinator configuration from a file with
// sane defaults and optional hot reload.
package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/shrtyk/ledger-coordinator/api"
	"github.com/shrtyk/ledger-coordinator/coordinator"
	"github.com/shrtyk/ledger-coordinator/pkg/logger"
)

var current atomic.Value // stores *api.CoordinatorConfig

// fileConfig is the file-facing shape. Every field is optional; missing
// fields keep the coordinator defaults.
type fileConfig struct {
	Env      string `mapstructure:"env"`
	HTTPAddr string `mapstructure:"http_addr"`

	Cluster struct {
		BaseHost       string   `mapstructure:"base_host"`
		BasePort       int      `mapstructure:"base_port"`
		Nodes          int      `mapstructure:"nodes"`
		Accounts       []string `mapstructure:"accounts"`
		OpeningBalance float64  `mapstructure:"opening_balance"`
	} `mapstructure:"cluster"`

	Timings struct {
		StatusPollInterval time.Duration `mapstructure:"status_poll_interval"`
		LogPollInterval    time.Duration `mapstructure:"log_poll_interval"`
		SettleDelay        time.Duration `mapstructure:"settle_delay"`
		RepollDelay        time.Duration `mapstructure:"repoll_delay"`
		RequestTimeout     time.Duration `mapstructure:"request_timeout"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"timings"`

	Breaker struct {
		FailureThreshold int           `mapstructure:"failure_threshold"`
		SuccessThreshold int           `mapstructure:"success_threshold"`
		ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	} `mapstructure:"breaker"`

	Retry struct {
		MaxAttempts int           `mapstructure:"max_attempts"`
		BaseDelay   time.Duration `mapstructure:"base_delay"`
	} `mapstructure:"retry"`
}

// Load reads the configuration file at path (empty path searches for
// "config.(yaml|yml|json|toml)" in the working directory), overlays it on
// the defaults and optionally hot-reloads it on change.
func Load(path string, hotReload bool) (*api.CoordinatorConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		// Missing file is fine: defaults carry the whole configuration.
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("config file not found; using defaults")
		}
	}

	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	current.Store(cfg)

	if hotReload && v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(_ fsnotify.Event) {
			newCfg, err := build(v)
			if err != nil {
				slog.Error("config reload failed", logger.ErrAttr(err))
				return
			}
			current.Store(newCfg)
			slog.Info("config reloaded", slog.String("path", v.ConfigFileUsed()))
		})
	}

	return cfg, nil
}

// Get returns the latest loaded snapshot, or the defaults before any Load.
func Get() *api.CoordinatorConfig {
	if c := current.Load(); c != nil {
		return c.(*api.CoordinatorConfig)
	}
	return coordinator.DefaultConfig()
}

// build overlays the file contents on the default configuration.
func build(v *viper.Viper) (*api.CoordinatorConfig, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := coordinator.DefaultConfig()

	switch fc.Env {
	case "":
	case "dev", "development":
		cfg.Log.Env = logger.Dev
	case "prod", "production":
		cfg.Log.Env = logger.Prod
	default:
		return nil, fmt.Errorf("unknown env %q", fc.Env)
	}

	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}

	if fc.Cluster.BaseHost != "" {
		cfg.Cluster.BaseHost = fc.Cluster.BaseHost
	}
	if fc.Cluster.BasePort != 0 {
		cfg.Cluster.BasePort = fc.Cluster.BasePort
	}
	if fc.Cluster.Nodes != 0 {
		if fc.Cluster.Nodes < 1 {
			return nil, fmt.Errorf("cluster.nodes must be positive, got %d", fc.Cluster.Nodes)
		}
		cfg.Cluster.Nodes = fc.Cluster.Nodes
	}
	if len(fc.Cluster.Accounts) > 0 {
		accounts := make([]api.Account, 0, len(fc.Cluster.Accounts))
		for _, a := range fc.Cluster.Accounts {
			accounts = append(accounts, api.Account(a))
		}
		cfg.Cluster.Accounts = accounts
	}
	if fc.Cluster.OpeningBalance != 0 {
		cfg.Cluster.OpeningBalance = fc.Cluster.OpeningBalance
	}

	overlayDuration(&cfg.Timings.StatusPollInterval, fc.Timings.StatusPollInterval)
	overlayDuration(&cfg.Timings.LogPollInterval, fc.Timings.LogPollInterval)
	overlayDuration(&cfg.Timings.SettleDelay, fc.Timings.SettleDelay)
	overlayDuration(&cfg.Timings.RepollDelay, fc.Timings.RepollDelay)
	overlayDuration(&cfg.Timings.RequestTimeout, fc.Timings.RequestTimeout)
	overlayDuration(&cfg.Timings.ShutdownTimeout, fc.Timings.ShutdownTimeout)

	if fc.Breaker.FailureThreshold != 0 {
		cfg.CBreaker.FailureThreshold = fc.Breaker.FailureThreshold
	}
	if fc.Breaker.SuccessThreshold != 0 {
		cfg.CBreaker.SuccessThreshold = fc.Breaker.SuccessThreshold
	}
	overlayDuration(&cfg.CBreaker.ResetTimeout, fc.Breaker.ResetTimeout)

	if fc.Retry.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
	}
	overlayDuration(&cfg.Retry.BaseDelay, fc.Retry.BaseDelay)

	return cfg, nil
}

func overlayDuration(dst *time.Duration, src time.Duration) {
	if src != 0 {
		*dst = src
	}
}
