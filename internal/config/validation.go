package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Validate checks the loaded configuration. Every problem is collected; the
// returned error is a ConfigurationErrorCollection or nil.
func (c Config) Validate() error {
	var errs ConfigurationErrorCollection

	add := func(category, message string, suggestions ...string) {
		errs.Add(ConfigurationError{
			Category:    category,
			ErrorType:   "validation",
			Message:     message,
			Suggestions: suggestions,
		})
	}

	if c.Validator.Timeout <= 0 {
		add("validator", fmt.Sprintf("timeout must be positive, got %s", c.Validator.Timeout))
	}
	if c.Validator.Parallel < 1 {
		add("validator", fmt.Sprintf("parallel must be at least 1, got %d", c.Validator.Parallel))
	}

	if c.Catalogue.Path == "" && c.Catalogue.URL == "" {
		add("catalogue", "either catalogue.path or catalogue.url is required",
			"Point catalogue.path at a YAML snapshot of the registry catalogue")
	}
	if c.Catalogue.URL != "" {
		if u, err := url.Parse(c.Catalogue.URL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			add("catalogue", fmt.Sprintf("catalogue.url %q is not an http(s) URL", c.Catalogue.URL))
		}
	}

	for name, kp := range map[string]KeyPair{
		"credentials.tls":           c.Credentials.TLS,
		"credentials.caSignedTls":   c.Credentials.CASignedTLS,
		"credentials.secondary.tls": c.Credentials.Secondary.TLS,
	} {
		if (kp.CertFile == "") != (kp.KeyFile == "") {
			add("credentials", fmt.Sprintf("%s needs both certFile and keyFile", name))
		}
		for _, f := range []string{kp.CertFile, kp.KeyFile} {
			if f != "" && !fileExists(f) {
				add("credentials", fmt.Sprintf("%s: file %s does not exist", name, f))
			}
		}
	}
	for _, f := range []string{c.Credentials.HTTPSigKeyFile, c.Credentials.Secondary.HTTPSigKeyFile} {
		if f != "" && !fileExists(f) {
			add("credentials", fmt.Sprintf("file %s does not exist", f))
		}
	}

	if !strings.Contains(c.GitHub.TagsURL, "%s") && !c.GitHub.Disabled {
		add("github", "github.tagsUrl must contain %s for the API name")
	}

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		add("logging", fmt.Sprintf("unknown log level %q", c.Logging.Level), "Use one of: debug, info, warn, error")
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON, "":
	default:
		add("logging", fmt.Sprintf("unknown log format %q", c.Logging.Format), "Use text or json")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
