package report

import (
	"net/http"
	"time"
)

// Phase tells which part of a run produced a step.
type Phase string

const (
	PhaseSetup Phase = "setup"
	PhaseMain  Phase = "main"
)

// HTTPExchange is a snapshot of a request or response stored in a step.
type HTTPExchange struct {
	Method  string      `json:"method,omitempty"`
	URL     string      `json:"url,omitempty"`
	Status  int         `json:"status,omitempty"`
	Headers http.Header `json:"headers,omitempty"`
	Body    string      `json:"body,omitempty"`
}

func (e HTTPExchange) equal(o HTTPExchange) bool {
	if e.Method != o.Method || e.URL != o.URL || e.Status != o.Status || e.Body != o.Body {
		return false
	}
	if len(e.Headers) != len(o.Headers) {
		return false
	}
	for k, v := range e.Headers {
		ov := o.Headers[k]
		if len(v) != len(ov) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

// Step is one finished check.
type Step struct {
	Name        string         `json:"name"`
	Phase       Phase          `json:"phase"`
	Combination string         `json:"combination,omitempty"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Skipped     bool           `json:"skipped,omitempty"`
	SkipReason  string         `json:"skipReason,omitempty"`
	Requests    []HTTPExchange `json:"requests,omitempty"`
	Responses   []HTTPExchange `json:"responses,omitempty"`
	Trace       string         `json:"trace,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// AddRequest appends a request snapshot unless it repeats the previous one.
func (s *Step) AddRequest(e HTTPExchange) {
	s.Requests = appendDistinct(s.Requests, e)
}

// AddResponse appends a response snapshot unless it repeats the previous one.
func (s *Step) AddResponse(e HTTPExchange) {
	s.Responses = appendDistinct(s.Responses, e)
}

func appendDistinct(list []HTTPExchange, e HTTPExchange) []HTTPExchange {
	if n := len(list); n > 0 && list[n-1].equal(e) {
		return list
	}
	return append(list, e)
}
