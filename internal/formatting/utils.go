package formatting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

var summaryOrder = []report.Status{
	report.StatusSuccess,
	report.StatusNotice,
	report.StatusWarning,
	report.StatusFailure,
	report.StatusError,
}

// Summary counts the steps of rep per status, e.g.
// "12 steps: 10 SUCCESS, 1 WARNING, 1 FAILURE, 2 skipped".
func Summary(rep report.Report) string {
	counts, skipped := rep.Counts()
	total := len(rep.Steps)
	parts := []string{}
	for _, st := range summaryOrder {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	out := fmt.Sprintf("%d steps", total)
	if total == 1 {
		out = "1 step"
	}
	if len(parts) > 0 {
		out += ": " + strings.Join(parts, ", ")
	}
	switch {
	case rep.Cancelled:
		out += " (cancelled)"
	case rep.Aborted:
		out += " (aborted)"
	}
	return out
}

func endpointSuffix(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	return "/" + endpoint
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func writeHeaders(w io.Writer, prefix string, e report.HTTPExchange) {
	names := make([]string, 0, len(e.Headers))
	for k := range e.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range e.Headers[k] {
			fmt.Fprintf(w, "%s%s: %s\n", prefix, k, v)
		}
	}
}
