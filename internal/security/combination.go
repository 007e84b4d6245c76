package security

import (
	"fmt"
	"net/http"
	"sort"
)

// Combination is one (method, endpoint, security) tuple to be tested.
//
// An Untestable combination stands for "nothing could be generated"; it
// carries the Reason and is reported as a single failure.
type Combination struct {
	Method     string     `json:"method"`
	Endpoint   string     `json:"endpoint"`
	Security   Descriptor `json:"-"`
	Untestable bool       `json:"untestable,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Code returns the five-letter code: G or P for the method followed by the
// security descriptor.
func (c Combination) Code() string {
	var m byte
	switch c.Method {
	case http.MethodGet:
		m = 'G'
	case http.MethodPost:
		m = 'P'
	default:
		m = '-'
	}
	return string(m) + c.Security.String()
}

func (c Combination) String() string {
	if c.Untestable {
		return "Combination[untestable]"
	}
	return fmt.Sprintf("Combination[%s]", c.Code())
}

func (c Combination) WithMethod(method string) Combination {
	c.Method = method
	return c
}

func (c Combination) WithEndpoint(endpoint string) Combination {
	c.Endpoint = endpoint
	return c
}

func (c Combination) WithSecurity(d Descriptor) Combination {
	c.Security = d
	return c
}

// Less orders combinations by method name, then descriptor code, then
// endpoint.
func (c Combination) Less(o Combination) bool {
	if c.Method != o.Method {
		return c.Method < o.Method
	}
	if a, b := c.Security.String(), o.Security.String(); a != b {
		return a < b
	}
	return c.Endpoint < o.Endpoint
}

// Rule reports whether a candidate combination may be tested.
type Rule func(Combination) bool

// NoEncryptedGET removes GET requests with encrypted request bodies. A GET
// request has no body to encrypt.
func NoEncryptedGET(c Combination) bool {
	return !(c.Method == http.MethodGet && c.Security.RequestEncryption == RequestEWP)
}

// Capabilities is the input of Generate.
type Capabilities struct {
	Endpoint    string
	HTTPMethods []string
	Security    Methods
	// Extra rules are applied after NoEncryptedGET.
	Rules []Rule
}

// Generate enumerates every combination the target must be tested with. The
// result is sorted and never empty: when nothing survives, a single
// untestable combination explains why.
func Generate(caps Capabilities) []Combination {
	rules := append([]Rule{NoEncryptedGET}, caps.Rules...)
	m := caps.Security

	var out []Combination
	for _, method := range caps.HTTPMethods {
		for _, ca := range m.Client {
			for _, sa := range m.Server {
				for _, rq := range m.Request {
					for _, rs := range m.Response {
						c := Combination{
							Method:   method,
							Endpoint: caps.Endpoint,
							Security: Descriptor{ca, sa, rq, rs},
						}
						if allow(rules, c) {
							out = append(out, c)
						}
					}
				}
			}
		}
	}

	if len(out) == 0 {
		return []Combination{{
			Endpoint:   caps.Endpoint,
			Untestable: true,
			Reason:     untestableReason(caps),
		}}
	}

	out = dedupe(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func allow(rules []Rule, c Combination) bool {
	for _, r := range rules {
		if !r(c) {
			return false
		}
	}
	return true
}

func dedupe(in []Combination) []Combination {
	seen := make(map[Combination]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func untestableReason(caps Capabilities) string {
	m := caps.Security
	switch {
	case len(caps.HTTPMethods) == 0:
		return "The endpoint does not accept any HTTP method the validator can use."
	case len(m.Client) == 0:
		return "None of the declared client authentication methods can be tested."
	case len(m.Server) == 0:
		return "None of the declared server authentication methods can be tested."
	case len(m.Request) == 0:
		return "None of the declared request encryption methods can be tested."
	case len(m.Response) == 0:
		return "None of the declared response encryption methods can be tested."
	}
	return "No combination of the declared security methods can be tested."
}
