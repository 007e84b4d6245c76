package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "ewp-validator", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"version", "self-update", "validate", "parameters", "batch", "reports", "serve"} {
		assert.True(t, found[name], "subcommand %s should be registered", name)
	}
}

func TestGetExitCode(t *testing.T) {
	threshold := &ThresholdError{Worst: report.StatusFailure, Threshold: report.StatusWarning}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "plain error", err: errors.New("boom"), want: ExitCodeError},
		{name: "threshold", err: threshold, want: ExitCodeThreshold},
		{name: "wrapped threshold", err: fmt.Errorf("run: %w", threshold), want: ExitCodeThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestThresholdErrorMessage(t *testing.T) {
	err := &ThresholdError{Worst: report.StatusFailure, Threshold: report.StatusWarning}
	assert.Equal(t, "worst status FAILURE reached the --fail-on level WARNING", err.Error())
}
