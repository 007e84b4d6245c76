package transport

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
)

// AcceptEncodingEWP is sent when the response is expected to be encrypted.
const AcceptEncodingEWP = CodingEWP + ", identity;q=0.1"

// ErrMissingCredential is returned when the descriptor needs a key the
// identity does not hold.
var ErrMissingCredential = errors.New("required client credential is not configured")

// Security tells Apply how to secure a request.
type Security struct {
	Descriptor security.Descriptor
	Identity   *Identity
	CASigned   *tls.Certificate
	// Codec is required for EWP request or response encryption.
	Codec Codec
	// RecipientKey encrypts request bodies for the target.
	RecipientKey *rsa.PublicKey
	Now          func() time.Time
}

// Apply secures req according to s.Descriptor. Headers are added in this
// order: request encryption, server authentication hints, response
// encryption hints, client authentication.
func Apply(req *Request, s Security) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	d := s.Descriptor

	if d.RequestEncryption == security.RequestEWP {
		if s.Codec == nil {
			return ErrNoCodec
		}
		if s.RecipientKey == nil {
			return fmt.Errorf("no recipient key available to encrypt the request")
		}
		enc, err := s.Codec.EncryptRequest(req.Body, s.RecipientKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt request body: %w", err)
		}
		req.Body = enc
		req.Header.Set("Content-Encoding", CodingEWP)
		req.Notices = append(req.Notices, "Request body encrypted with "+CodingEWP)
	}

	if d.ServerAuth == security.ServerHTTPSig {
		req.Header.Set("Want-Digest", "SHA-256")
		req.Header.Set("Accept-Signature", "rsa-sha256")
	}

	if d.ResponseEncryption == security.ResponseEWP {
		if s.Codec == nil {
			return ErrNoCodec
		}
		req.Header.Set("Accept-Encoding", AcceptEncodingEWP)
		if d.ClientAuth != security.ClientHTTPSig {
			der, err := x509.MarshalPKIXPublicKey(s.Codec.PublicKey())
			if err != nil {
				return fmt.Errorf("failed to encode response encryption key: %w", err)
			}
			req.Header.Set("Accept-Response-Encryption-Key", base64.StdEncoding.EncodeToString(der))
		}
	}

	id := s.Identity
	if !id.Usable(d.ClientAuth, s.CASigned) {
		return fmt.Errorf("%w: %s", ErrMissingCredential, d.ClientAuth)
	}
	switch d.ClientAuth {
	case security.ClientTLSCertSelfSigned, security.ClientTLSCert:
		req.ClientCert = id.ClientCertificate(d.ClientAuth, s.CASigned)
	case security.ClientHTTPSig:
		if err := signRequest(req, id.Signer, now()); err != nil {
			return err
		}
	}
	return nil
}

func signRequest(req *Request, signer Signer, now time.Time) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid request URL %q: %w", req.URL, err)
	}
	req.Header.Set("Host", u.Host)
	if req.Header.Get("Date") == "" && req.Header.Get("Original-Date") == "" {
		req.Header.Set("Date", now.UTC().Format(http.TimeFormat))
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	hreq, err := req.HTTPRequest(context.Background())
	if err != nil {
		return err
	}
	if err := signer.Sign(hreq, req.Body); err != nil {
		return err
	}
	req.Header = hreq.Header
	req.Notices = append(req.Notices, "Request signed with key "+signer.KeyID())
	return nil
}

// RequestID returns the X-Request-Id added by HTTP signature client
// authentication, if any.
func (r *Request) RequestID() string {
	return r.Header.Get("X-Request-Id")
}

// SignatureValue extracts the signature param of the request's
// Authorization header, or returns "".
func (r *Request) SignatureValue() string {
	params, ok := ParseSignatureHeader(r.Header.Get("Authorization"))
	if !ok {
		return ""
	}
	return params["signature"]
}
