package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.Equal(t, 10*time.Second, cfg.Validator.Timeout)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFileName, `
validator:
  timeout: 3s
  parallel: 2
catalogue:
  path: /tmp/catalogue.yaml
  watch: true
logging:
  level: debug
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Validator.Timeout)
	assert.Equal(t, 2, cfg.Validator.Parallel)
	assert.Equal(t, "/tmp/catalogue.yaml", cfg.Catalogue.Path)
	assert.True(t, cfg.Catalogue.Watch)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultListen, cfg.Server.Listen)
	assert.Equal(t, "ewp-validator", cfg.Validator.UserAgent)
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "broken.yaml", "validator:\n  parallel: [1, 2\n")

	_, err := LoadFile(p)
	require.Error(t, err)

	var cerr ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "parse", cerr.ErrorType)
	assert.Equal(t, "broken.yaml", cerr.FileName)
	assert.Contains(t, cerr.DetailedError(), "Suggestions:")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "EWP_VALIDATOR_TEST_DOTENV=from-file\n")
	t.Setenv("EWP_VALIDATOR_TEST_DOTENV", "")
	os.Unsetenv("EWP_VALIDATOR_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), p))
	assert.Equal(t, "from-file", os.Getenv("EWP_VALIDATOR_TEST_DOTENV"))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EWP_VALIDATOR_CATALOGUE_URL": "https://registry.example.org/catalogue.yaml",
		"EWP_VALIDATOR_TIMEOUT":       "250ms",
		"EWP_VALIDATOR_PARALLEL":      "8",
		"EWP_VALIDATOR_LOG_LEVEL":     "warn",
	}
	cfg := GetDefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, func(k string) string { return env[k] }))

	assert.Equal(t, "https://registry.example.org/catalogue.yaml", cfg.Catalogue.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Validator.Timeout)
	assert.Equal(t, 8, cfg.Validator.Parallel)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timeout", "EWP_VALIDATOR_TIMEOUT", "soon"},
		{"bad parallel", "EWP_VALIDATOR_PARALLEL", "many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			err := ApplyEnv(&cfg, func(k string) string {
				if k == tt.key {
					return tt.val
				}
				return ""
			})
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := GetDefaultConfig()
	valid.Catalogue.Path = "/tmp/catalogue.yaml"

	tests := []struct {
		name       string
		mutate     func(c *Config)
		wantErr    bool
		categories []string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:       "no catalogue",
			mutate:     func(c *Config) { c.Catalogue.Path = "" },
			wantErr:    true,
			categories: []string{"catalogue"},
		},
		{
			name: "half key pair and bad level",
			mutate: func(c *Config) {
				c.Credentials.TLS.CertFile = "/nonexistent/validator.crt"
				c.Logging.Level = "loud"
			},
			wantErr:    true,
			categories: []string{"credentials", "logging"},
		},
		{
			name:       "zero timeout",
			mutate:     func(c *Config) { c.Validator.Timeout = 0 },
			wantErr:    true,
			categories: []string{"validator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var coll ConfigurationErrorCollection
			require.True(t, errors.As(err, &coll))
			for _, cat := range tt.categories {
				assert.NotEmpty(t, coll.GetErrorsByCategory(cat), "expected a %s error", cat)
			}
		})
	}
}
