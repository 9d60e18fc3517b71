package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// A .env file in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("TRENDGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("trendgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".trendgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env vars can override
// keys that no config file mentions.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.rate_limit", cfg.Fetcher.RateLimit)
	v.SetDefault("fetcher.rate_burst", cfg.Fetcher.RateBurst)
	v.SetDefault("fetcher.browser.enabled", cfg.Fetcher.Browser.Enabled)
	v.SetDefault("fetcher.browser.headless", cfg.Fetcher.Browser.Headless)
	v.SetDefault("fetcher.browser.stealth", cfg.Fetcher.Browser.Stealth)
	v.SetDefault("fetcher.browser.bin_path", cfg.Fetcher.Browser.BinPath)
	v.SetDefault("fetcher.browser.wait_idle", cfg.Fetcher.Browser.WaitIdle)

	v.SetDefault("aggregator.source_timeout", cfg.Aggregator.SourceTimeout)
	v.SetDefault("aggregator.max_concurrency", cfg.Aggregator.MaxConcurrency)

	v.SetDefault("classifier.topics", cfg.Classifier.Topics)

	v.SetDefault("pipeline.dedup", cfg.Pipeline.Dedup)
	v.SetDefault("pipeline.min_metric", cfg.Pipeline.MinMetric)
	v.SetDefault("pipeline.topic", cfg.Pipeline.Topic)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.cache_ttl", cfg.API.CacheTTL)
	v.SetDefault("api.cache_size", cfg.API.CacheSize)

	v.SetDefault("hot_list_url", cfg.HotListURL)
}
