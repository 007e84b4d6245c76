package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/config"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeThreshold indicates a report reached the --fail-on status.
	ExitCodeThreshold = 4
)

// Global flags shared by every command.
var (
	configFile    string
	envFile       string
	logLevel      string
	catalogueFlag string
)

// rootCmd represents the base command for the ewp-validator application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ewp-validator",
	Short: "Check EWP API endpoints for conformance",
	Long: `ewp-validator runs conformance suites against Erasmus Without Paper
API endpoints registered in the EWP registry catalogue. It tries every
security method the endpoint declares and reports each request it sends.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// ThresholdError is returned when a report is at least as bad as the
// status given with --fail-on.
type ThresholdError struct {
	Worst     report.Status
	Threshold report.Status
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("worst status %s reached the --fail-on level %s", e.Worst, e.Threshold)
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ewp-validator version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var threshold *ThresholdError
	if errors.As(err, &threshold) {
		return ExitCodeThreshold
	}
	return ExitCodeError
}

// loadSettings reads .env files, the config file and EWP_VALIDATOR_*
// variables, then applies the global flags. requireCatalogue additionally
// validates the result for commands that run suites. CLI logging stays at
// warn unless --log-level is given; serve switches to the configured level.
func loadSettings(requireCatalogue bool) (config.Config, error) {
	level := logging.LevelWarn
	if logLevel != "" {
		var ok bool
		if level, ok = logging.ParseLevel(logLevel); !ok {
			return config.Config{}, fmt.Errorf("unknown log level %q", logLevel)
		}
	}
	logging.InitForCLI(level, os.Stderr)

	envFiles := []string{".env"}
	if envFile != "" {
		envFiles = []string{envFile}
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.Config{}, err
	}

	var (
		cfg config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		var dir string
		if dir, err = config.GetDefaultConfigDir(); err != nil {
			return config.Config{}, err
		}
		cfg, err = config.LoadConfig(dir)
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return config.Config{}, err
	}

	if catalogueFlag != "" {
		cfg.Catalogue.Path, cfg.Catalogue.URL = catalogueFlag, ""
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if requireCatalogue {
		if err := cfg.Validate(); err != nil {
			var errs config.ConfigurationErrorCollection
			if errors.As(err, &errs) {
				return config.Config{}, fmt.Errorf("invalid configuration:\n%s", errs.GetDetailedReport())
			}
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// init registers the subcommands and the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.config/ewp-validator/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default is ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&catalogueFlag, "catalogue", "", "registry catalogue snapshot file, overrides the config")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newParametersCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newReportsCmd())
	rootCmd.AddCommand(newServeCmd())
}
