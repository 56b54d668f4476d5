package api_config

import (
	"time"

	"github.com/nianevitch/uptime-checker/internal/obs"
	pginfra "github.com/nianevitch/uptime-checker/internal/repository/postgres"
)

type ServerCfg struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SweepCfg struct {
	Interval time.Duration `mapstructure:"interval"`
	// TTL must exceed the poller's total probe timeout.
	TTL time.Duration `mapstructure:"ttl"`
}

type Config struct {
	DB     pginfra.Config `mapstructure:"db"`
	Server ServerCfg      `mapstructure:"server"`
	Sweep  SweepCfg       `mapstructure:"sweep"`
	Log    obs.LogConfig  `mapstructure:"log"`
	OTEL   obs.OTELConfig `mapstructure:"otel"`
}
