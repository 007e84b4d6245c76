package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/formatting"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	pkgstrings "github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/strings"
)

// progressSuffixLen bounds the step shown next to the spinner.
const progressSuffixLen = 72

// progress shows a spinner with the last finished step. It is an
// engine.Observer.
type progress struct {
	s     *spinner.Spinner
	label string
	steps int
	worst report.Status
}

func newProgress(w io.Writer, label string) *progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + label
	return &progress{s: s, label: label}
}

func (p *progress) StepFinished(step report.Step) {
	p.s.Lock()
	defer p.s.Unlock()
	p.steps++
	if !step.Skipped {
		p.worst = report.Max(p.worst, step.Status)
	}
	line := pkgstrings.FirstLine(formatting.StepLine(step))
	p.s.Suffix = fmt.Sprintf(" %s: %d steps, %s", p.label, p.steps, pkgstrings.Truncate(line, progressSuffixLen))
}

func (p *progress) Start() {
	p.s.Start()
}

// Stop ends the spinner with a one line outcome.
func (p *progress) Stop() {
	p.s.Lock()
	msg := fmt.Sprintf("%s: %d steps, worst %s\n", p.label, p.steps, p.worst)
	if p.worst.AtLeast(report.StatusFailure) {
		msg = text.FgRed.Sprint(msg)
	}
	p.s.FinalMSG = msg
	p.s.Unlock()
	p.s.Stop()
}
