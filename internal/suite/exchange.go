package suite

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

const (
	schemaFailed  = "HTTP response status was okay, but the content has failed Schema validation. "
	errorResponse = "error-response"

	secondaryMissing = "Keys for another EWP participant not provided. Run the Validator locally and provide secondary keys."
)

var requiredChallengeHeaders = []string{"(request-target)", "host", "digest", "x-request-id", "date"}

// exchanger performs the HTTP part of a step: it secures the request, sends
// it and checks the response against an expectation.
type exchanger struct {
	client    transport.Client
	lookup    catalogue.Lookup
	creds     *transport.Credentials
	codec     transport.Codec
	now       func() time.Time
	root      string
	apiURL    string
	recipient *rsa.PublicKey
}

func (x *exchanger) identity(secondary bool) *transport.Identity {
	if x.creds == nil {
		return nil
	}
	if secondary {
		return x.creds.Secondary
	}
	return &x.creds.Primary
}

// prepare builds a secured request for c.
func (x *exchanger) prepare(sc *engine.StepContext, c security.Combination, params transport.Params, secondary bool) (*transport.Request, error) {
	req := transport.Build(c, params)
	sc.RecordRequest(req.Snapshot())
	if err := x.secure(req, c.Security, x.identity(secondary), x.recipient); err != nil {
		return nil, fmt.Errorf("failed to prepare the request: %w", err)
	}
	sc.RecordRequest(req.Snapshot())
	return req, nil
}

func (x *exchanger) secure(req *transport.Request, d security.Descriptor, id *transport.Identity, recipient *rsa.PublicKey) error {
	var caSigned *tls.Certificate
	if x.creds != nil {
		caSigned = x.creds.CASignedTLS
	}
	return transport.Apply(req, transport.Security{
		Descriptor:   d,
		Identity:     id,
		CASigned:     caSigned,
		Codec:        x.codec,
		RecipientKey: recipient,
		Now:          x.now,
	})
}

// send maps transport errors to ERROR failures.
func (x *exchanger) send(ctx context.Context, sc *engine.StepContext, req *transport.Request) (*transport.Response, error) {
	resp, err := x.client.Send(ctx, req)
	if err != nil {
		var te *transport.TimeoutError
		var ce *transport.ConnectionError
		switch {
		case errors.As(err, &te):
			return nil, engine.FailMsg(report.StatusError, te.Error())
		case errors.As(err, &ce):
			sc.Logger().Debug("Problems retrieving response from server: %v\n", ce.Err)
			return nil, engine.FailMsg(report.StatusError, ce.Error())
		}
		return nil, engine.FailMsg(report.StatusError, "Problems retrieving response from server: "+err.Error())
	}
	sc.RecordResponse(resp.Snapshot())
	return resp, nil
}

// commons authenticates the server and removes content codings. It returns
// the processing notices and the plain body.
func (x *exchanger) commons(sc *engine.StepContext, c security.Combination, req *transport.Request, resp *transport.Response) ([]string, []byte, error) {
	tlsNotices, err := transport.TLSAuthorizer{}.Authorize(req, resp)
	if err != nil {
		return nil, nil, engine.FailMsg(report.StatusFailure, err.Error())
	}

	var notices []string
	if c.Security.ServerAuth == security.ServerHTTPSig {
		auth := transport.AuthorizerFor(security.ServerHTTPSig, x.lookup, x.apiURL, x.now)
		details, err := auth.Authorize(req, resp)
		if err != nil {
			return nil, nil, engine.FailMsg(report.StatusFailure, err.Error())
		}
		for _, d := range details {
			sc.Logger().Debug("%s\n", d)
		}
	} else {
		notices = append(notices, tlsNotices...)
	}
	sc.RecordResponse(resp.Snapshot())

	body, err := x.decode(c.Security, req, resp)
	if err != nil {
		return nil, nil, engine.FailMsg(report.StatusFailure, err.Error())
	}
	return notices, body, nil
}

// decode removes the content codings of resp. Responses to encrypted
// requests must be encrypted too.
func (x *exchanger) decode(d security.Descriptor, req *transport.Request, resp *transport.Response) ([]byte, error) {
	var accept *string
	if v, ok := req.Header["Accept-Encoding"]; ok && len(v) > 0 {
		joined := strings.Join(v, ", ")
		accept = &joined
	}
	var required []string
	if d.ResponseEncryption == security.ResponseEWP {
		required = []string{transport.CodingEWP}
	}
	return transport.Decoder{Codec: x.codec}.Decode(resp, accept, required)
}

// recipientKey returns the first server key of entry the catalogue knows.
func recipientKey(lookup catalogue.Lookup, entry catalogue.Entry) *rsa.PublicKey {
	for _, id := range entry.ServerKeyIDs {
		if key, ok := lookup.ServerKey(id); ok && key.Public != nil {
			return key.Public
		}
	}
	return nil
}

// expectOK checks a 200 response. It returns the parsed body.
func (x *exchanger) expectOK(sc *engine.StepContext, c security.Combination, req *transport.Request, resp *transport.Response, e Expectation) (verifier.Document, error) {
	notices, body, err := x.commons(sc, c, req, resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		msg := fmt.Sprintf("HTTP 200 expected, but HTTP %d received.", resp.Status)
		if resp.Status == http.StatusForbidden {
			msg += " Make sure you validate clients' credentials against a fresh Registry catalogue version."
		}
		return nil, engine.FailMsg(e.severity, msg)
	}

	doc, err := verifier.Parse(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, engine.FailMsg(report.StatusFailure, schemaFailed+err.Error())
	}
	if x.root != "" && doc.RootName() != "" && doc.RootName() != x.root {
		return nil, engine.FailMsg(report.StatusFailure, schemaFailed+
			fmt.Sprintf("Expected the <%s> root element, but <%s> was found.", x.root, doc.RootName()))
	}
	if e.verifier != nil {
		if err := e.verifier.Verify(doc); err != nil {
			var res *verifier.Result
			if errors.As(err, &res) {
				status := res.Severity
				if e.severity < status {
					status = e.severity
				}
				return nil, engine.FailMsg(status, res.Message)
			}
			return nil, fmt.Errorf("response verification failed: %w", err)
		}
	}
	if err := noticesFailure(notices); err != nil {
		return doc, err
	}
	return doc, nil
}

// expectError checks a response that must carry one of e's error statuses.
func (x *exchanger) expectError(sc *engine.StepContext, c security.Combination, req *transport.Request, resp *transport.Response, e Expectation) error {
	notices, body, err := x.commons(sc, c, req, resp)
	if err != nil {
		return err
	}
	if !containsInt(e.codes, resp.Status) {
		status := e.severity
		if resp.Status/100 == e.codes[0]/100 {
			status = min(e.severity, report.StatusWarning)
		}
		return engine.Fail(status, "%s expected, but HTTP %d received.", joinCodes(e.codes), resp.Status)
	}

	doc, err := verifier.Parse(resp.Header.Get("Content-Type"), body)
	if err != nil || (doc.RootName() != "" && doc.RootName() != errorResponse) {
		detail := ""
		if err != nil {
			detail = " " + err.Error()
		}
		return engine.FailMsg(report.StatusWarning, schemaFailed+
			"It is recommended to return a proper <error-response> in case of errors."+detail)
	}

	if resp.Status == http.StatusUnauthorized {
		if err := checkUnauthorized(resp); err != nil {
			return err
		}
	}
	return noticesFailure(notices)
}

func checkUnauthorized(resp *transport.Response) error {
	wwwauth := resp.Header.Get("WWW-Authenticate")
	if wwwauth == "" {
		return engine.Fail(report.StatusWarning, "Per HTTP specs, HTTP 401 responses MUST contain a "+
			"WWW-Authenticate header (it should be signed if HttpSig is used). See here: "+
			"https://tools.ietf.org/html/rfc7235#section-4.1")
	}
	if ch, ok := transport.FindChallenge(wwwauth, "Signature"); ok {
		if ch.Params["realm"] != "EWP" {
			return engine.Fail(report.StatusWarning, "Your WWW-Authenticate header should contain the \"realm\" property with \"EWP\" value.")
		}
		if algs := strings.Fields(ch.Params["algorithms"]); len(algs) > 0 && !containsFold(algs, "rsa-sha256") {
			return engine.Fail(report.StatusWarning, "Your WWW-Authenticate describes required Signature algorithms, "+
				"but the list doesn't contain the required rsa-sha256 algorithm.")
		}
		if headers := strings.Fields(strings.ToLower(ch.Params["headers"])); len(headers) > 0 {
			for _, h := range requiredChallengeHeaders {
				if !containsFold(headers, h) {
					return engine.Fail(report.StatusWarning, "If you want to include the \"headers\" property in your "+
						"WWW-Authenticate header, then it should contain at least all required values: "+
						"(request-target), host, digest, x-request-id and date")
				}
			}
		}
	}
	if wd := resp.Header.Get("Want-Digest"); !strings.Contains(wd, "SHA-256") {
		return engine.Fail(report.StatusWarning, "It is RECOMMENDED for HTTP 401 responses to contain a proper "+
			"Want-Digest header with at least the SHA-256 value.")
	}
	return nil
}

func noticesFailure(notices []string) error {
	if len(notices) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("Notices:\n")
	for _, n := range notices {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return engine.FailMsg(report.StatusNotice, b.String())
}

func joinCodes(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = "HTTP " + strconv.Itoa(c)
	}
	return strings.Join(parts, " or ")
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
