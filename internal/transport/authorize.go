package transport

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-fed/httpsig"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
)

// MaxClockSkew is the largest accepted difference between a signed date and
// the validator's clock.
const MaxClockSkew = 5 * time.Minute

// AuthError means the response failed server authentication.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func authErr(format string, args ...interface{}) *AuthError {
	return &AuthError{Message: fmt.Sprintf(format, args...)}
}

// ResponseAuthorizer verifies the server's identity before the body is
// trusted. It may strip headers that were not authenticated and returns
// processing notices.
type ResponseAuthorizer interface {
	Authorize(req *Request, resp *Response) ([]string, error)
}

// KeyLookup finds server keys published in the catalogue.
type KeyLookup interface {
	ServerKey(keyID string) (catalogue.ServerKey, bool)
}

// AuthorizerFor selects the authorizer for a server authentication method.
// apiURL is the catalogue URL of the endpoint being tested.
func AuthorizerFor(s security.ServerAuth, keys KeyLookup, apiURL string, now func() time.Time) ResponseAuthorizer {
	if s == security.ServerHTTPSig {
		return &HTTPSigAuthorizer{Keys: keys, APIURL: apiURL, Now: now}
	}
	return TLSAuthorizer{}
}

// TLSAuthorizer trusts the TLS server certificate.
type TLSAuthorizer struct{}

func (TLSAuthorizer) Authorize(req *Request, resp *Response) ([]string, error) {
	if !resp.TLS {
		return nil, authErr("Requests need to be made over TLS (https) connection.")
	}
	if err := verifyRequestID(req, resp); err != nil {
		return nil, err
	}
	var notices []string
	if resp.Header.Get("Signature") != "" {
		notices = append(notices, "Response contains the Signature header, even though the client didn't ask for it. "+
			"In general, there's nothing wrong with that, but you might want to tweak your implementation to save "+
			"some computing time.")
	}
	return notices, nil
}

// HTTPSigAuthorizer verifies HTTP Signature server authentication.
type HTTPSigAuthorizer struct {
	Keys   KeyLookup
	APIURL string
	Now    func() time.Time
}

func (a *HTTPSigAuthorizer) Authorize(req *Request, resp *Response) ([]string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	if err := verifyRequestID(req, resp); err != nil {
		return nil, err
	}
	if req.Header.Get("X-Request-Id") != "" && resp.Header.Get("X-Request-Id") == "" {
		return nil, authErr("HTTP Signature Server Authentication requires the server to include the correlated " +
			"(and signed) X-Request-Id, whenever it has been included in the request.")
	}

	sigHeader := resp.Header.Get("Signature")
	if sigHeader == "" {
		return nil, authErr("Expecting the response to contain the Signature header")
	}
	params, ok := ParseSignatureHeader(sigHeader)
	if !ok || params["keyid"] == "" || params["signature"] == "" {
		return nil, authErr("Could not parse response's Signature header, make sure it's in a proper format")
	}

	if alg := params["algorithm"]; alg != string(httpsig.RSA_SHA256) {
		if alg == "" {
			alg = "no algorithm"
		}
		return nil, authErr("Expecting the response's Signature to use the rsa-sha256 algorithm, but %s found instead.", alg)
	}

	signed := signedHeaders(params)
	if err := verifySignedHeaders(resp, signed); err != nil {
		return nil, err
	}
	if err := verifyRequestSignature(req, resp); err != nil {
		return nil, err
	}
	if err := verifyDates(resp, now()); err != nil {
		return nil, err
	}

	key, found := a.Keys.ServerKey(params["keyid"])
	if !found {
		return nil, authErr("The keyId extracted from the response's Signature header doesn't match any of the keys published in the Registry")
	}
	if !key.Covers(a.APIURL) {
		return nil, authErr("The keyId extracted from the response's Signature header has been found in the Registry, " +
			"but it doesn't cover the API endpoint which has generated the response. Make sure that you have " +
			"included your key in a proper manifest section.")
	}

	if err := verifySignature(req, resp, key); err != nil {
		return nil, err
	}
	if err := verifyDigest(resp); err != nil {
		return nil, err
	}

	notices := []string{"Response has been successfully authenticated with HttpSig. Server identified: " + key.ID}
	if removed := removeUnsigned(resp, signed); len(removed) > 0 {
		notices = append(notices, "The following headers were removed, because they weren't covered by HTTP Signature: "+
			strings.Join(removed, ", ")+".")
	}
	return notices, nil
}

func verifyRequestID(req *Request, resp *Response) error {
	reqID := req.Header.Get("X-Request-Id")
	resID := resp.Header.Get("X-Request-Id")
	if resID == "" {
		return nil
	}
	if reqID == "" {
		return authErr("The request didn't contain the X-Request-Id header, so the response also shouldn't.")
	}
	if reqID != resID {
		return authErr("Expecting the response to contain exactly the same X-Request-Id as has been sent in the request.")
	}
	return nil
}

func signedHeaders(params map[string]string) map[string]bool {
	list := params["headers"]
	if list == "" {
		list = "date"
	}
	out := make(map[string]bool)
	for _, h := range strings.Fields(strings.ToLower(list)) {
		out[h] = true
	}
	return out
}

func verifySignedHeaders(resp *Response, signed map[string]bool) error {
	required := []string{"digest"}
	if resp.Header.Get("X-Request-Id") != "" {
		required = append(required, "x-request-id")
	}
	if resp.Header.Get("X-Request-Signature") != "" {
		required = append(required, "x-request-signature")
	}
	for _, h := range required {
		if !signed[h] {
			return authErr("Expecting the response's Signature to cover the %q header, but it doesn't.", h)
		}
	}
	if !signed["date"] && !signed["original-date"] {
		return authErr("Expecting the response's Signature to cover the \"date\" header or the \"original-date\" " +
			"header (or both), but it doesn't cover any of them.")
	}
	return nil
}

func verifyRequestSignature(req *Request, resp *Response) error {
	reqSig := req.SignatureValue()
	got := resp.Header.Get("X-Request-Signature")
	switch {
	case got != "" && reqSig == "":
		return authErr("X-Request-Signature response header should be present only when HTTP Signature Client " +
			"Authentication has been used in the request.")
	case got != "" && got != reqSig:
		return authErr("X-Request-Signature response header doesn't match the actual HTTP Signature of the orginal request")
	case got == "" && reqSig != "":
		return authErr("Missing X-Request-Signature response header.")
	}
	return nil
}

func verifyDates(resp *Response, now time.Time) error {
	var names []string
	for _, h := range []string{"Date", "Original-Date"} {
		if resp.Header.Get(h) != "" {
			names = append(names, h)
		}
	}
	if len(names) == 0 {
		return authErr("Expecting the response to contain the \"Date\" header or the \"Original-Date\" (or both).")
	}
	for _, h := range names {
		if msg := DateHeaderProblem(resp.Header.Get(h), now); msg != "" {
			return authErr("The value of response's %q header failed verification: %s", h, msg)
		}
	}
	return nil
}

// DateHeaderProblem describes why a signed date is unacceptable, or returns
// "".
func DateHeaderProblem(value string, now time.Time) string {
	t, err := http.ParseTime(value)
	if err != nil {
		return "Could not parse the date. Make sure it's in a valid RFC 2616 format."
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	secs := int64(diff / time.Second)
	if secs > int64(MaxClockSkew/time.Second) {
		return fmt.Sprintf("Server/client difference exceeds the maximum allowed threshold (it was %d seconds; allowed: %d)",
			secs, int64(MaxClockSkew/time.Second))
	}
	return ""
}

// verifySignature checks the response signature. The verifier is fed a
// synthetic request carrying the response headers and the original
// request-target, so that signatures covering (request-target) verify too.
func verifySignature(req *Request, resp *Response, key catalogue.ServerKey) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return authErr("Invalid HTTP Signature in response: %v", err)
	}
	synthetic := &http.Request{
		Method: req.Method,
		URL:    u,
		Header: resp.Header.Clone(),
	}
	verifier, err := httpsig.NewVerifier(synthetic)
	if err != nil {
		return authErr("Invalid HTTP Signature in response: %v", err)
	}
	if err := verifier.Verify(key.Public, httpsig.RSA_SHA256); err != nil {
		return authErr("Invalid HTTP Signature in response: %v", err)
	}
	return nil
}

func verifyDigest(resp *Response) error {
	header := resp.Header.Get("Digest")
	if header == "" {
		return authErr("Missing response header: Digest")
	}
	sum := sha256.Sum256(resp.Body)
	expected := base64.StdEncoding.EncodeToString(sum[:])
	var got string
	found := false
	for _, pair := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if ok && strings.EqualFold(strings.TrimSpace(name), "SHA-256") {
			got = strings.TrimSpace(value)
			found = true
		}
	}
	if !found {
		return authErr("Missing SHA-256 digest in Digest header")
	}
	if got != expected {
		return authErr("Response SHA-256 digest mismatch. Expected: %s", expected)
	}
	return nil
}

func removeUnsigned(resp *Response, signed map[string]bool) []string {
	var removed []string
	for name := range resp.Header {
		if !signed[strings.ToLower(name)] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		resp.Header.Del(name)
	}
	return removed
}
