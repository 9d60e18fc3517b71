package config

import (
	"time"

	"github.com/IshaanNene/TrendGoat/internal/source"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for TrendGoat.
type Config struct {
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Aggregator AggregatorConfig `mapstructure:"aggregator" yaml:"aggregator"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"   yaml:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`

	// HotListURL is the endpoint of the JSON hot-list family.
	HotListURL string `mapstructure:"hot_list_url" yaml:"hot_list_url"`

	// Sources override built-in sources with the same id and add new ones.
	Sources []*source.Spec `mapstructure:"sources" yaml:"sources"`
}

// FetcherConfig controls the HTTP and browser fetchers.
type FetcherConfig struct {
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`

	// RateLimit is requests per second per host; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`

	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// BrowserConfig controls the headless browser fetcher.
type BrowserConfig struct {
	Enabled  bool          `mapstructure:"enabled"   yaml:"enabled"`
	Headless bool          `mapstructure:"headless"  yaml:"headless"`
	Stealth  bool          `mapstructure:"stealth"   yaml:"stealth"`
	BinPath  string        `mapstructure:"bin_path"  yaml:"bin_path"`
	WaitIdle time.Duration `mapstructure:"wait_idle" yaml:"wait_idle"`
}

// AggregatorConfig controls concurrent fetching of sources.
type AggregatorConfig struct {
	// SourceTimeout applies to sources that do not set their own.
	SourceTimeout  time.Duration `mapstructure:"source_timeout"  yaml:"source_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// ClassifierConfig maps topic names to keyword sets.
type ClassifierConfig struct {
	Topics map[string][]string `mapstructure:"topics" yaml:"topics"`
}

// PipelineConfig controls post-extraction processing.
type PipelineConfig struct {
	Dedup     bool   `mapstructure:"dedup"      yaml:"dedup"`
	MinMetric int64  `mapstructure:"min_metric" yaml:"min_metric"`
	Topic     string `mapstructure:"topic"      yaml:"topic"`
}

// StorageConfig controls export of a run.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus-style metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// APIConfig controls the JSON API server.
type APIConfig struct {
	Port      int           `mapstructure:"port"       yaml:"port"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"  yaml:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size" yaml:"cache_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			RateLimit:       2,
			RateBurst:       2,
			Browser: BrowserConfig{
				Headless: true,
				Stealth:  true,
				WaitIdle: 2 * time.Second,
			},
		},
		Aggregator: AggregatorConfig{
			SourceTimeout:  15 * time.Second,
			MaxConcurrency: 8,
		},
		Classifier: ClassifierConfig{
			Topics: map[string][]string{
				"ai":       {"AI", "LLM", "GPT", "agent", "Agent", "人工智能", "大模型"},
				"security": {"CVE", "security", "Security", "漏洞"},
			},
		},
		Storage: StorageConfig{
			Type:       "json",
			OutputPath: "./output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		API: APIConfig{
			Port:      8080,
			CacheTTL:  5 * time.Minute,
			CacheSize: 64,
		},
		HotListURL: source.HotListBaseURL,
	}
}

// SourceTable builds the source table: built-in sources with the
// configured overrides applied.
func (c *Config) SourceTable() (*source.Table, error) {
	return source.NewTable(source.Merge(source.BuiltinAt(c.HotListURL), c.Sources))
}
