package suite

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

const knownHEI = "uw.edu.pl"

var heiIDs = verifier.NewFactory("hei", "hei-id")

type fakeLookup struct {
	covered []string
	entries []catalogue.Entry
	urls    map[string][]string
}

func (f *fakeLookup) CoveredHEIs(string) []string { return f.covered }

func (f *fakeLookup) APIURLs(hei, _, _ string) []string { return f.urls[hei] }

func (f *fakeLookup) FindEntries(api, version, _, url string) []catalogue.Entry {
	var out []catalogue.Entry
	for _, e := range f.entries {
		if e.Name == api && e.Version == version && e.URL == url {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeLookup) EntryByURL(url string) (catalogue.Entry, bool) {
	for _, e := range f.entries {
		if e.URL == url {
			return e, true
		}
	}
	return catalogue.Entry{}, false
}

func (f *fakeLookup) ServerKey(string) (catalogue.ServerKey, bool) {
	return catalogue.ServerKey{}, false
}

var anonymousTLS = security.ManifestSecurity{
	ClientAuth:         []string{"none"},
	ServerAuth:         []string{"tlscert"},
	RequestEncryption:  []string{"tls"},
	ResponseEncryption: []string{"tls"},
}

func registered(url string, sec security.ManifestSecurity) *fakeLookup {
	return &fakeLookup{
		covered: []string{knownHEI},
		entries: []catalogue.Entry{{
			API: catalogue.API{
				Name:     "institutions",
				Version:  "2.1.0",
				URL:      url,
				Params:   map[string]string{"max-hei-ids": "1"},
				Security: sec,
			},
			Host: "test-host",
			HEIs: []string{knownHEI},
		}},
	}
}

// institutionsTarget answers like a correct Institutions API limited to one
// hei_id per request.
type institutionsTarget struct {
	mu   sync.Mutex
	seen []string
	// acceptDuplicates answers 200 when hei_id is repeated.
	acceptDuplicates bool
	// status overrides every answer when set.
	status int
}

func (tg *institutionsTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	tg.mu.Lock()
	tg.seen = append(tg.seen, r.Method+" "+r.Form.Encode())
	tg.mu.Unlock()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed)
		return
	}
	if tg.status != 0 {
		writeError(w, tg.status)
		return
	}
	ids := r.Form["hei_id"]
	if len(ids) == 0 || (len(ids) > 1 && !tg.acceptDuplicates) {
		writeError(w, http.StatusBadRequest)
		return
	}
	var b strings.Builder
	b.WriteString(`<institutions-response xmlns="https://github.com/erasmus-without-paper/ewp-specs-api-institutions/tree/stable-v2">`)
	if ids[0] == knownHEI {
		fmt.Fprintf(&b, "<hei><hei-id>%s</hei-id><name>University of Warsaw</name></hei>", knownHEI)
	}
	b.WriteString("</institutions-response>")
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(b.String()))
}

func (tg *institutionsTarget) requests() []string {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return append([]string(nil), tg.seen...)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<error-response xmlns="https://github.com/erasmus-without-paper/ewp-specs-architecture/blob/stable-v1/common-types.xsd"><developer-message>HTTP %d</developer-message></error-response>`, status)
}

// testAPI is a small Institutions suite.
func testAPI(battery func(st *State) []Case) API {
	if battery == nil {
		battery = func(st *State) []Case {
			hei := st.Value("hei_id")
			return []Case{
				{
					Name:   "Request for one of known HEI IDs, expect 200 OK.",
					Params: transport.Params{transport.P("hei_id", hei)},
					Expect: OK(heiIDs.ContainExactly(hei)),
				},
				{
					Name:   "Request with the known HEI ID twice, expect 400.",
					Params: transport.Repeat(2, transport.P("hei_id", hei)),
					Expect: Error(http.StatusBadRequest),
				},
			}
		}
	}
	return API{
		Name:     "institutions",
		MinMajor: 2,
		Parameters: []fixture.Parameter{{
			Name:     "hei_id",
			Strategy: fixture.CoveredHEIs(),
			Missing:  "No covered HEIs.",
		}},
		Limits:           []string{"max-hei-ids"},
		AnonymousAllowed: true,
		ResponseRoot:     "institutions-response",
		Battery:          battery,
	}
}

type harness struct {
	srv    *httptest.Server
	target *institutionsTarget
	lookup *fakeLookup
}

func newHarness(t *testing.T, configure ...func(*institutionsTarget)) *harness {
	t.Helper()
	tg := &institutionsTarget{}
	for _, fn := range configure {
		fn(tg)
	}
	srv := httptest.NewTLSServer(tg)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, target: tg, lookup: registered(srv.URL, anonymousTLS)}
}

func (h *harness) validator(api API, opts ...Option) *Validator {
	base := []Option{
		WithTransport(transport.NewHTTPClient(transport.HTTPOptions{
			Timeout:            5 * time.Second,
			InsecureSkipVerify: true,
		})),
		WithCatalogue(h.lookup),
	}
	return NewValidator(NewRegistry(api), append(base, opts...)...)
}

func (h *harness) request() Request {
	return Request{URL: h.srv.URL, API: "institutions", Version: "2.1.0"}
}

func stepNames(rep report.Report) []string {
	out := make([]string, len(rep.Steps))
	for i, s := range rep.Steps {
		out[i] = s.Name
	}
	return out
}

func findStep(t *testing.T, rep report.Report, name, combination string) report.Step {
	t.Helper()
	for _, s := range rep.Steps {
		if s.Name == name && (combination == "" || s.Combination == combination) {
			return s
		}
	}
	t.Fatalf("step %q (%s) not found in %v", name, combination, stepNames(rep))
	return report.Step{}
}

func mainSteps(rep report.Report) []report.Step {
	var out []report.Step
	for _, s := range rep.Steps {
		if s.Phase == report.PhaseMain {
			out = append(out, s)
		}
	}
	return out
}
