package poller_config

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("probe.connect_timeout", "10s")
	v.SetDefault("probe.total_timeout", "30s")
	v.SetDefault("probe.user_agent", "UptimeCheckerAgent/1.0")
	v.SetDefault("probe.follow_redirects", true)
	v.SetDefault("probe.verify_tls", true)

	v.SetDefault("poller.tick", "1m")
	v.SetDefault("poller.batch_size", 20)
	v.SetDefault("poller.concurrency", 4)

	v.SetDefault("server.metrics_addr", ":8082")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.app", "poller")
	v.SetDefault("log.env", "dev")
	v.SetDefault("log.version", "dev")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "poller")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
