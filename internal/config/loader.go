package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

const (
	userConfigDir  = ".config/ewp-validator"
	configFileName = "config.yaml"

	// EnvPrefix starts every environment override.
	EnvPrefix = "EWP_VALIDATOR_"
)

// GetDefaultConfigDir returns ~/.config/ewp-validator.
func GetDefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from the given directory on top of the
// defaults. A missing file is not an error.
func LoadConfig(configDir string) (Config, error) {
	return LoadFile(filepath.Join(configDir, configFileName))
}

// LoadFile loads one YAML file on top of the defaults.
func LoadFile(path string) (Config, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config file found at %s, using defaults", path)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config from %s: %s", path, err)
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		var typeErr *yaml.TypeError
		line := 0
		if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
			fmt.Sscanf(typeErr.Errors[0], "line %d:", &line)
		}
		return Config{}, ConfigurationError{
			FilePath:    path,
			FileName:    filepath.Base(path),
			Category:    "config",
			ErrorType:   "parse",
			Message:     "malformed YAML",
			Details:     err.Error(),
			LineNumber:  line,
			Suggestions: []string{"Check indentation and value types against the documented keys"},
		}
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return config, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Variables
// that are already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		logging.Debug("ConfigLoader", "Loaded environment from %s", p)
	}
	return nil
}

// ApplyEnv overrides configuration values from EWP_VALIDATOR_* variables.
// getenv is os.Getenv in production.
func ApplyEnv(c *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("CATALOGUE_PATH", &c.Catalogue.Path)
	str("CATALOGUE_URL", &c.Catalogue.URL)
	str("TLS_CERT", &c.Credentials.TLS.CertFile)
	str("TLS_KEY", &c.Credentials.TLS.KeyFile)
	str("HTTPSIG_KEY", &c.Credentials.HTTPSigKeyFile)
	str("LISTEN", &c.Server.Listen)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("REPORTS_DIR", &c.Reports.Dir)
	str("GITHUB_TOKEN", &c.GitHub.Token)

	if v := getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Validator.Timeout = d
	}
	if v := getenv(EnvPrefix + "PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPARALLEL: %w", EnvPrefix, err)
		}
		c.Validator.Parallel = n
	}
	return nil
}
