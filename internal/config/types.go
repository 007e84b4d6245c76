package config

import "time"

// Config is the top-level configuration of the validator.
type Config struct {
	Validator   ValidatorConfig   `yaml:"validator"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Catalogue   CatalogueConfig   `yaml:"catalogue"`
	GitHub      GitHubConfig      `yaml:"github"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Reports     ReportsConfig     `yaml:"reports"`
}

// ValidatorConfig tunes how runs talk to targets.
type ValidatorConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty"`   // Per-request timeout (default: 10s)
	Parallel  int           `yaml:"parallel,omitempty"`  // Concurrent runs in batch mode (default: 4)
	UserAgent string        `yaml:"userAgent,omitempty"` // User-Agent sent to targets
	// InsecureSkipVerify disables server certificate checks. Only meant for
	// local test deployments.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify,omitempty"`
}

// KeyPair points at a PEM certificate and its private key.
type KeyPair struct {
	CertFile string `yaml:"certFile,omitempty"`
	KeyFile  string `yaml:"keyFile,omitempty"`
}

// Configured reports whether both files are set.
func (k KeyPair) Configured() bool {
	return k.CertFile != "" && k.KeyFile != ""
}

// CredentialsConfig holds the validator's own identity in the federation.
type CredentialsConfig struct {
	// TLS is the self-signed client certificate registered in the catalogue.
	TLS KeyPair `yaml:"tls,omitempty"`
	// CASignedTLS is an optional CA-signed client certificate.
	CASignedTLS KeyPair `yaml:"caSignedTls,omitempty"`
	// HTTPSigKeyFile is the PEM RSA key used for HTTP Signatures.
	HTTPSigKeyFile string `yaml:"httpSigKeyFile,omitempty"`
	// Secondary holds the keys of another participant, for checks that
	// need a second identity.
	Secondary SecondaryCredentials `yaml:"secondary,omitempty"`
	// PublishedAt is when these credentials appeared in the catalogue.
	PublishedAt time.Time `yaml:"publishedAt,omitempty"`
}

// SecondaryCredentials are the keys of another EWP participant.
type SecondaryCredentials struct {
	TLS            KeyPair `yaml:"tls,omitempty"`
	HTTPSigKeyFile string  `yaml:"httpSigKeyFile,omitempty"`
}

// Configured reports whether any secondary key is present.
func (s SecondaryCredentials) Configured() bool {
	return s.TLS.Configured() || s.HTTPSigKeyFile != ""
}

// CatalogueConfig tells where the registry catalogue snapshot comes from.
type CatalogueConfig struct {
	Path            string        `yaml:"path,omitempty"`            // Local YAML snapshot
	URL             string        `yaml:"url,omitempty"`             // Remote YAML snapshot
	Watch           bool          `yaml:"watch,omitempty"`           // Reload Path on change
	RefreshInterval time.Duration `yaml:"refreshInterval,omitempty"` // Re-fetch URL periodically
}

// GitHubConfig configures the lookup of published API versions.
type GitHubConfig struct {
	// TagsURL is a format string receiving the API name.
	TagsURL  string        `yaml:"tagsUrl,omitempty"`
	CacheTTL time.Duration `yaml:"cacheTtl,omitempty"`
	Disabled bool          `yaml:"disabled,omitempty"`
	Token    string        `yaml:"token,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen      string `yaml:"listen,omitempty"`
	MetricsPath string `yaml:"metricsPath,omitempty"`
}

// LoggingConfig selects log verbosity and format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// ReportsConfig sets where finished reports are kept.
type ReportsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}
