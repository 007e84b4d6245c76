package transport

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-fed/httpsig"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
)

// Signer adds HTTP Signature client authentication to a request.
type Signer interface {
	// Sign adds the Digest and Authorization headers. body is the exact
	// request body; an empty body is still digested.
	Sign(req *http.Request, body []byte) error
	// KeyID is the key fingerprint announced in the signature.
	KeyID() string
	// PublicKey is the verification key registered in the catalogue.
	PublicKey() *rsa.PublicKey
}

// HTTPSigSigner signs with rsa-sha256 using go-fed/httpsig.
type HTTPSigSigner struct {
	key   *rsa.PrivateKey
	keyID string
}

// NewHTTPSigSigner wraps an RSA private key.
func NewHTTPSigSigner(key *rsa.PrivateKey) (*HTTPSigSigner, error) {
	id, err := catalogue.KeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &HTTPSigSigner{key: key, keyID: id}, nil
}

// LoadHTTPSigSigner reads a PEM encoded RSA private key (PKCS#1 or PKCS#8).
func LoadHTTPSigSigner(path string) (*HTTPSigSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP signature key: %w", err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewHTTPSigSigner(key)
}

// ParsePrivateKey decodes a PEM RSA private key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, expected RSA", k)
	}
	return rsaKey, nil
}

func (s *HTTPSigSigner) KeyID() string             { return s.keyID }
func (s *HTTPSigSigner) PublicKey() *rsa.PublicKey { return &s.key.PublicKey }

// Sign implements Signer. Every header present on the request is signed,
// together with (request-target) and the Digest added here.
func (s *HTTPSigSigner) Sign(req *http.Request, body []byte) error {
	req.Header.Del("Digest")
	req.Header.Del("Authorization")

	headers := []string{httpsig.RequestTarget}
	for name := range req.Header {
		headers = append(headers, strings.ToLower(name))
	}
	headers = append(headers, "digest")
	sort.Strings(headers[1:])

	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		headers,
		httpsig.Authorization,
		0,
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP signature signer: %w", err)
	}
	if body == nil {
		body = []byte{}
	}
	if err := signer.SignRequest(s.key, s.keyID, req, body); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	setRSAAlgorithm(req.Header, "Authorization")
	return nil
}

var algorithmParam = regexp.MustCompile(`algorithm="[^"]*"`)

// setRSAAlgorithm names rsa-sha256 in a signature header written by
// go-fed/httpsig, which always announces hs2019. The algorithm parameter is
// not part of the signing string, so the signature stays valid.
func setRSAAlgorithm(h http.Header, name string) {
	v := h.Get(name)
	if v == "" {
		return
	}
	want := `algorithm="` + string(httpsig.RSA_SHA256) + `"`
	if algorithmParam.MatchString(v) {
		v = algorithmParam.ReplaceAllLiteralString(v, want)
	} else {
		v += "," + want
	}
	h.Set(name, v)
}
