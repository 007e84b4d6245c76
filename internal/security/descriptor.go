package security

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor is returned when a four-letter security code cannot
// be parsed.
var ErrInvalidDescriptor = errors.New("invalid security descriptor")

// ClientAuth is the method the validator uses to authenticate itself to the
// target.
type ClientAuth int

const (
	// ClientNone means anonymous access.
	ClientNone ClientAuth = iota
	// ClientTLSCertSelfSigned authenticates with a self-signed TLS client
	// certificate.
	ClientTLSCertSelfSigned
	// ClientTLSCert authenticates with a CA-signed TLS client certificate.
	ClientTLSCert
	// ClientHTTPSig authenticates with an HTTP Signature.
	ClientHTTPSig
)

// ServerAuth is the method the target uses to prove its identity.
type ServerAuth int

const (
	ServerTLSCert ServerAuth = iota
	ServerHTTPSig
)

// RequestEncryption is applied to request bodies.
type RequestEncryption int

const (
	RequestTLS RequestEncryption = iota
	RequestEWP
)

// ResponseEncryption is applied to response bodies.
type ResponseEncryption int

const (
	ResponseTLS ResponseEncryption = iota
	ResponseEWP
)

var (
	clientLetters   = map[ClientAuth]byte{ClientNone: 'A', ClientTLSCertSelfSigned: 'S', ClientTLSCert: 'T', ClientHTTPSig: 'H'}
	serverLetters   = map[ServerAuth]byte{ServerTLSCert: 'T', ServerHTTPSig: 'H'}
	requestLetters  = map[RequestEncryption]byte{RequestTLS: 'T', RequestEWP: 'E'}
	responseLetters = map[ResponseEncryption]byte{ResponseTLS: 'T', ResponseEWP: 'E'}
)

func (c ClientAuth) Letter() byte         { return letterOr(clientLetters, c) }
func (s ServerAuth) Letter() byte         { return letterOr(serverLetters, s) }
func (r RequestEncryption) Letter() byte  { return letterOr(requestLetters, r) }
func (r ResponseEncryption) Letter() byte { return letterOr(responseLetters, r) }

func letterOr[K comparable](m map[K]byte, k K) byte {
	if l, ok := m[k]; ok {
		return l
	}
	return '?'
}

func (c ClientAuth) String() string {
	switch c {
	case ClientNone:
		return "No Client Authentication (Anonymous Client)"
	case ClientTLSCertSelfSigned:
		return "Client Authentication with TLS Certificate (self-signed)"
	case ClientTLSCert:
		return "Client Authentication with TLS Certificate (CA-signed)"
	case ClientHTTPSig:
		return "Client Authentication with HTTP Signature"
	}
	return fmt.Sprintf("ClientAuth(%d)", int(c))
}

func (s ServerAuth) String() string {
	switch s {
	case ServerTLSCert:
		return "Server Authentication with TLS Certificate (CA-signed)"
	case ServerHTTPSig:
		return "Server Authentication with HTTP Signature"
	}
	return fmt.Sprintf("ServerAuth(%d)", int(s))
}

func (r RequestEncryption) String() string {
	switch r {
	case RequestTLS:
		return "Request Encryption only with regular TLS"
	case RequestEWP:
		return "Request Encryption with ewp-rsa-aes128gcm"
	}
	return fmt.Sprintf("RequestEncryption(%d)", int(r))
}

func (r ResponseEncryption) String() string {
	switch r {
	case ResponseTLS:
		return "Response Encryption only with regular TLS"
	case ResponseEWP:
		return "Response Encryption with ewp-rsa-aes128gcm"
	}
	return fmt.Sprintf("ResponseEncryption(%d)", int(r))
}

// Descriptor is one security method per kind. It is a comparable value type:
// two descriptors are equal iff all four fields are equal.
type Descriptor struct {
	ClientAuth         ClientAuth
	ServerAuth         ServerAuth
	RequestEncryption  RequestEncryption
	ResponseEncryption ResponseEncryption
}

// String returns the canonical four-letter code, e.g. "HTTT".
func (d Descriptor) String() string {
	return string([]byte{
		d.ClientAuth.Letter(),
		d.ServerAuth.Letter(),
		d.RequestEncryption.Letter(),
		d.ResponseEncryption.Letter(),
	})
}

// Explanation returns the legend of the code, one line per position.
func (d Descriptor) Explanation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%c---:%s\n", d.ClientAuth.Letter(), d.ClientAuth)
	fmt.Fprintf(&b, "-%c--:%s\n", d.ServerAuth.Letter(), d.ServerAuth)
	fmt.Fprintf(&b, "--%c-:%s\n", d.RequestEncryption.Letter(), d.RequestEncryption)
	fmt.Fprintf(&b, "---%c:%s", d.ResponseEncryption.Letter(), d.ResponseEncryption)
	return b.String()
}

func (d Descriptor) WithClientAuth(c ClientAuth) Descriptor {
	d.ClientAuth = c
	return d
}

func (d Descriptor) WithServerAuth(s ServerAuth) Descriptor {
	d.ServerAuth = s
	return d
}

func (d Descriptor) WithRequestEncryption(r RequestEncryption) Descriptor {
	d.RequestEncryption = r
	return d
}

func (d Descriptor) WithResponseEncryption(r ResponseEncryption) Descriptor {
	d.ResponseEncryption = r
	return d
}

// ParseDescriptor parses a canonical four-letter code.
func ParseDescriptor(code string) (Descriptor, error) {
	if len(code) != 4 {
		return Descriptor{}, fmt.Errorf("%w %q: expected 4 letters", ErrInvalidDescriptor, code)
	}
	var d Descriptor
	var ok bool
	if d.ClientAuth, ok = reverse(clientLetters, code[0]); !ok {
		return Descriptor{}, fmt.Errorf("%w %q: unknown client authentication %q", ErrInvalidDescriptor, code, code[0])
	}
	if d.ServerAuth, ok = reverse(serverLetters, code[1]); !ok {
		return Descriptor{}, fmt.Errorf("%w %q: unknown server authentication %q", ErrInvalidDescriptor, code, code[1])
	}
	if d.RequestEncryption, ok = reverse(requestLetters, code[2]); !ok {
		return Descriptor{}, fmt.Errorf("%w %q: unknown request encryption %q", ErrInvalidDescriptor, code, code[2])
	}
	if d.ResponseEncryption, ok = reverse(responseLetters, code[3]); !ok {
		return Descriptor{}, fmt.Errorf("%w %q: unknown response encryption %q", ErrInvalidDescriptor, code, code[3])
	}
	return d, nil
}

func reverse[K comparable](m map[K]byte, letter byte) (K, bool) {
	for k, l := range m {
		if l == letter {
			return k, true
		}
	}
	var zero K
	return zero, false
}
