package poller_config

import (
	"time"

	"github.com/nianevitch/uptime-checker/internal/obs"
	"github.com/nianevitch/uptime-checker/internal/services/poller"
	"github.com/nianevitch/uptime-checker/internal/services/probe"
)

type APICfg struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerCfg struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	API    APICfg         `mapstructure:"api"`
	Probe  probe.Config   `mapstructure:"probe"`
	Poller poller.Config  `mapstructure:"poller"`
	Server ServerCfg      `mapstructure:"server"`
	Log    obs.LogConfig  `mapstructure:"log"`
	OTEL   obs.OTELConfig `mapstructure:"otel"`
}
