package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
)

// ContentTypeForm is sent with POST and PUT parameter bodies.
const ContentTypeForm = "application/x-www-form-urlencoded"

// Request is a request under construction. Security is applied on top of
// it by Apply and it is turned into an *http.Request only when sent.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// ClientCert is presented during the TLS handshake when set.
	ClientCert *tls.Certificate

	// Notices describe processing done on the request (signing, encryption).
	Notices []string
}

// NewRequest creates an empty request.
func NewRequest(method, rawURL string) *Request {
	return &Request{Method: method, URL: rawURL, Header: make(http.Header)}
}

// Build creates the plain request for a combination. GET (and any method
// other than POST and PUT) carries params in the query string; POST and PUT
// carry them as a form body.
func Build(c security.Combination, params Params) *Request {
	switch c.Method {
	case http.MethodPost, http.MethodPut:
		r := NewRequest(c.Method, c.Endpoint)
		r.Header.Set("Content-Type", ContentTypeForm)
		r.Body = []byte(params.Encode())
		return r
	default:
		return NewRequest(c.Method, params.AppendToURL(c.Endpoint))
	}
}

// Snapshot records the request for a report step.
func (r *Request) Snapshot() report.HTTPExchange {
	return report.HTTPExchange{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Header.Clone(),
		Body:    string(r.Body),
	}
}

// HTTPRequest converts the request into a net/http request.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL %q: %w", r.URL, err)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	if len(r.Body) == 0 {
		req.Body = http.NoBody
	}
	req.Header = r.Header.Clone()
	if h := r.Header.Get("Host"); h != "" {
		req.Host = h
	}
	return req, nil
}

// PathAndQuery is the request-target of the request.
func (r *Request) PathAndQuery() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	return u.RequestURI()
}
