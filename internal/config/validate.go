package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/IshaanNene/TrendGoat/internal/parser"
	"github.com/IshaanNene/TrendGoat/internal/source"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report config keys rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher.rate_limit must be >= 0, got %v", cfg.Fetcher.RateLimit)
	}
	if cfg.Fetcher.RateLimit > 0 && cfg.Fetcher.RateBurst < 1 {
		return fmt.Errorf("fetcher.rate_burst must be >= 1 when rate_limit is set, got %d", cfg.Fetcher.RateBurst)
	}

	if cfg.Aggregator.SourceTimeout <= 0 {
		return fmt.Errorf("aggregator.source_timeout must be > 0")
	}
	if cfg.Aggregator.MaxConcurrency < 1 || cfg.Aggregator.MaxConcurrency > 256 {
		return fmt.Errorf("aggregator.max_concurrency must be 1-256, got %d", cfg.Aggregator.MaxConcurrency)
	}

	if cfg.Pipeline.MinMetric < 0 {
		return fmt.Errorf("pipeline.min_metric must be >= 0, got %d", cfg.Pipeline.MinMetric)
	}
	if cfg.Pipeline.Topic != "" {
		if _, ok := cfg.Classifier.Topics[cfg.Pipeline.Topic]; !ok {
			return fmt.Errorf("pipeline.topic %q is not a classifier topic", cfg.Pipeline.Topic)
		}
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv)", cfg.Storage.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}
	if cfg.API.CacheSize < 1 {
		return fmt.Errorf("api.cache_size must be >= 1, got %d", cfg.API.CacheSize)
	}

	if cfg.HotListURL != "" {
		if err := ValidateURL(cfg.HotListURL); err != nil {
			return fmt.Errorf("hot_list_url: %w", err)
		}
	}

	for i, spec := range cfg.Sources {
		if err := ValidateSource(spec); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateSource checks a source definition: struct tags first, then
// the parts tags cannot express.
func ValidateSource(spec *source.Spec) error {
	if spec == nil {
		return errors.New("empty source")
	}
	if err := validate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("source %q: %s", spec.ID, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("source %q: %w", spec.ID, err)
	}
	if err := ValidateURL(spec.URL); err != nil {
		return fmt.Errorf("source %q: %w", spec.ID, err)
	}

	switch spec.Kind {
	case source.KindHTML:
		for _, role := range []source.Role{source.RoleContainer, source.RoleTitleLink} {
			if len(spec.Chain(role)) == 0 {
				return fmt.Errorf("source %q: html source needs %s selectors", spec.ID, role)
			}
		}
		for role, chain := range spec.Selectors {
			if err := parser.CompileChain(chain); err != nil {
				return fmt.Errorf("source %q: %s: %w", spec.ID, role, err)
			}
		}
	case source.KindJSON:
		if spec.Fields == nil {
			return fmt.Errorf("source %q: json source needs a field map", spec.ID)
		}
	}

	for suffix, mult := range spec.Quirks.Suffixes {
		if strings.TrimSpace(suffix) == "" || mult <= 0 {
			return fmt.Errorf("source %q: invalid quantity suffix %q=%d", spec.ID, suffix, mult)
		}
	}
	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
