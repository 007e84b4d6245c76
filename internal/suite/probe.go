package suite

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// ErrNoPreferredSecurity is returned by discovery requests sent before any
// usable security method is known.
var ErrNoPreferredSecurity = errors.New("no security method supported by both sides")

// probe sends discovery requests during setup. They are not recorded as
// steps; only the resolution outcome is.
type probe struct {
	st     *State
	x      *exchanger
	lookup catalogue.Lookup
}

var _ fixture.Probe = (*probe)(nil)

// Fetch queries url with the preferred security method of the run and
// returns the decoded 200 response.
func (p *probe) Fetch(ctx context.Context, url string, params transport.Params) (verifier.Document, error) {
	d, ok := p.st.Preferred()
	if !ok {
		return nil, ErrNoPreferredSecurity
	}
	method := http.MethodGet
	if d.RequestEncryption == security.RequestEWP {
		method = http.MethodPost
	}
	c := security.Combination{Method: method, Endpoint: url, Security: d}
	req := transport.Build(c, params)
	if err := p.x.secure(req, d, p.x.identity(false), p.recipient(url)); err != nil {
		return nil, fmt.Errorf("failed to prepare the request to %s: %w", url, err)
	}

	logging.Debug("Suite", "Discovery request %s %s", req.Method, req.URL)
	resp, err := p.x.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := (transport.TLSAuthorizer{}).Authorize(req, resp); err != nil {
		return nil, err
	}
	if d.ServerAuth == security.ServerHTTPSig {
		auth := transport.AuthorizerFor(security.ServerHTTPSig, p.lookup, url, p.x.now)
		if _, err := auth.Authorize(req, resp); err != nil {
			return nil, err
		}
	}
	body, err := p.x.decode(d, req, resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("%s answered HTTP %d", url, resp.Status)
	}
	return verifier.Parse(resp.Header.Get("Content-Type"), body)
}

// recipient is the key request bodies to url are encrypted with.
func (p *probe) recipient(url string) *rsa.PublicKey {
	if url == p.st.URL() && p.x.recipient != nil {
		return p.x.recipient
	}
	if p.lookup == nil {
		return nil
	}
	entry, ok := p.lookup.EntryByURL(url)
	if !ok {
		return nil
	}
	return recipientKey(p.lookup, entry)
}
