package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
)

// errPromptAborted is returned when the user interrupts the prompts.
var errPromptAborted = errors.New("parameter input aborted")

// askFunc shows prompt and returns the entered line.
type askFunc func(prompt string) (string, error)

// askParameters asks for every parameter not given yet. An empty answer
// leaves the parameter to discovery. Parameters blocked by an answered one
// are not asked.
func askParameters(params []fixture.Parameter, given map[string]string, ask askFunc) (map[string]string, error) {
	out := make(map[string]string, len(given))
	for k, v := range given {
		out[k] = v
	}

outer:
	for _, p := range params {
		if _, ok := out[p.Name]; ok {
			continue
		}
		for _, b := range p.BlockedBy {
			if _, ok := out[b]; ok {
				continue outer
			}
		}
		for _, d := range p.DependsOn {
			if _, ok := out[d]; !ok {
				// Only discoverable together with its dependencies.
				continue outer
			}
		}

		answer, err := ask(parameterPrompt(p))
		if err != nil {
			return nil, err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			out[p.Name] = answer
		}
	}
	return out, nil
}

func parameterPrompt(p fixture.Parameter) string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, " (%s)", strings.TrimSuffix(p.Description, "."))
	}
	if p.Optional {
		b.WriteString(" [optional]")
	}
	b.WriteString(": ")
	return b.String()
}

// readlineAsk prompts on the terminal with line editing and history.
func readlineAsk(stdin io.ReadCloser, stdout io.Writer) (askFunc, func() error, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".ewp_validator_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdin:           stdin,
		Stdout:          stdout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create readline instance: %w", err)
	}

	ask := func(prompt string) (string, error) {
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			return "", errPromptAborted
		case errors.Is(err, io.EOF):
			return "", nil
		case err != nil:
			return "", fmt.Errorf("readline error: %w", err)
		}
		return line, nil
	}
	return ask, rl.Close, nil
}
