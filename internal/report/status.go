package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the outcome of a step. Values are ordered by severity.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusNotice
	StatusWarning
	StatusFailure
	StatusError
)

var statusNames = map[Status]string{
	StatusPending: "PENDING",
	StatusSuccess: "SUCCESS",
	StatusNotice:  "NOTICE",
	StatusWarning: "WARNING",
	StatusFailure: "FAILURE",
	StatusError:   "ERROR",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus accepts the names returned by String, case-insensitively.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == upper {
			return s, nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status %q", name)
}

// AtLeast reports whether s is as severe as o or worse.
func (s Status) AtLeast(o Status) bool {
	return s >= o
}

// Max returns the more severe of two statuses.
func Max(a, b Status) Status {
	if a > b {
		return a
	}
	return b
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var _ json.Marshaler = Status(0)

// MarshalJSON keeps statuses readable in JSON reports.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(name))
}
