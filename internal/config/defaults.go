package config

import "time"

const (
	// DefaultTimeout bounds every request sent to a target.
	DefaultTimeout = 10 * time.Second

	// DefaultTagsURL lists the tags of an API's specification repository.
	DefaultTagsURL = "https://api.github.com/repos/erasmus-without-paper/ewp-specs-api-%s/tags"

	DefaultListen      = "localhost:8080"
	DefaultMetricsPath = "/metrics"
	DefaultParallel    = 4
)

// GetDefaultConfig returns the configuration used when no file is present.
func GetDefaultConfig() Config {
	return Config{
		Validator: ValidatorConfig{
			Timeout:   DefaultTimeout,
			Parallel:  DefaultParallel,
			UserAgent: "ewp-validator",
		},
		Catalogue: CatalogueConfig{
			RefreshInterval: 5 * time.Minute,
		},
		GitHub: GitHubConfig{
			TagsURL:  DefaultTagsURL,
			CacheTTL: time.Hour,
		},
		Server: ServerConfig{
			Listen:      DefaultListen,
			MetricsPath: DefaultMetricsPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
