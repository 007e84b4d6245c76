package security

import (
	"fmt"
	"strings"
)

// Manifest names of the security methods, as they appear in a catalogue
// entry's http-security section.
const (
	NameNone            = "none"
	NameTLSCert         = "tlscert"
	NameTLSCertSelfSign = "tlscert-selfsigned"
	NameHTTPSig         = "httpsig"
	NameTLS             = "tls"
	NameEWPEncryption   = "ewp-rsa-aes128gcm"
)

// ManifestSecurity is the raw http-security section of a catalogue entry. A
// nil list means the section was absent and the defaults apply.
type ManifestSecurity struct {
	ClientAuth         []string `yaml:"client-auth-methods,omitempty" json:"clientAuthMethods,omitempty"`
	ServerAuth         []string `yaml:"server-auth-methods,omitempty" json:"serverAuthMethods,omitempty"`
	RequestEncryption  []string `yaml:"request-encryption-methods,omitempty" json:"requestEncryptionMethods,omitempty"`
	ResponseEncryption []string `yaml:"response-encryption-methods,omitempty" json:"responseEncryptionMethods,omitempty"`
}

// Settings are the methods a target declares, after defaults were applied.
type Settings struct {
	ClientNone            bool
	ClientTLSCert         bool
	ClientTLSCertSelfSign bool
	ClientHTTPSig         bool
	ServerTLSCert         bool
	ServerHTTPSig         bool
	RequestTLS            bool
	RequestEWP            bool
	ResponseTLS           bool
	ResponseEWP           bool

	// Notices lists declared methods the validator does not recognize.
	Notices []string
}

// ParseSettings applies the manifest defaults: without an explicit list a
// target accepts CA-signed TLS client certificates, authenticates itself with
// its TLS certificate and relies on TLS for both directions.
func ParseSettings(m ManifestSecurity) Settings {
	var s Settings

	if m.ClientAuth == nil {
		s.ClientTLSCert = true
	}
	for _, name := range m.ClientAuth {
		switch normalize(name) {
		case NameNone:
			s.ClientNone = true
		case NameTLSCert:
			s.ClientTLSCert = true
		case NameTLSCertSelfSign:
			s.ClientTLSCert = true
			s.ClientTLSCertSelfSign = true
		case NameHTTPSig:
			s.ClientHTTPSig = true
		default:
			s.Notices = append(s.Notices, fmt.Sprintf("Unrecognized client authentication method: %s", name))
		}
	}

	if m.ServerAuth == nil {
		s.ServerTLSCert = true
	}
	for _, name := range m.ServerAuth {
		switch normalize(name) {
		case NameTLSCert:
			s.ServerTLSCert = true
		case NameHTTPSig:
			s.ServerHTTPSig = true
		default:
			s.Notices = append(s.Notices, fmt.Sprintf("Unrecognized server authentication method: %s", name))
		}
	}

	if m.RequestEncryption == nil {
		s.RequestTLS = true
	}
	for _, name := range m.RequestEncryption {
		switch normalize(name) {
		case NameTLS:
			s.RequestTLS = true
		case NameEWPEncryption:
			s.RequestEWP = true
		default:
			s.Notices = append(s.Notices, fmt.Sprintf("Unrecognized request encryption method: %s", name))
		}
	}

	if m.ResponseEncryption == nil {
		s.ResponseTLS = true
	}
	for _, name := range m.ResponseEncryption {
		switch normalize(name) {
		case NameTLS:
			s.ResponseTLS = true
		case NameEWPEncryption:
			s.ResponseEWP = true
		default:
			s.Notices = append(s.Notices, fmt.Sprintf("Unrecognized response encryption method: %s", name))
		}
	}

	return s
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Methods are the per-kind method lists the generator crosses.
type Methods struct {
	Client   []ClientAuth
	Server   []ServerAuth
	Request  []RequestEncryption
	Response []ResponseEncryption
}

// Findings are the messages produced while collecting methods.
type Findings struct {
	Errors   []string
	Warnings []string
	Notices  []string
}

// Empty reports whether no message was recorded.
func (f Findings) Empty() bool {
	return len(f.Errors) == 0 && len(f.Warnings) == 0 && len(f.Notices) == 0
}

// Summary renders the findings grouped by severity. Each group starts with
// "Errors:", "Warnings:" or "Notices:" and lists one message per line.
func (f Findings) Summary() string {
	var b strings.Builder
	section := func(title string, msgs []string) {
		if len(msgs) == 0 {
			return
		}
		b.WriteString(title)
		b.WriteString(":\n")
		for _, m := range msgs {
			b.WriteString("- ")
			b.WriteString(m)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	section("Errors", f.Errors)
	section("Warnings", f.Warnings)
	section("Notices", f.Notices)
	return b.String()
}

// CollectOptions tune CollectMethods for one API and one validator setup.
type CollectOptions struct {
	// AnonymousAllowed is false for APIs that must never be reachable
	// without client authentication.
	AnonymousAllowed bool
	// CASignedCertificate is true when the validator holds a CA-signed TLS
	// client certificate.
	CASignedCertificate bool
}

// CollectMethods selects the methods to test from the declared settings and
// records the recommendations the target does not follow.
func CollectMethods(s Settings, opts CollectOptions) (Methods, Findings) {
	var m Methods
	var f Findings
	f.Notices = append(f.Notices, s.Notices...)

	// Client authentication.
	switch {
	case !s.ClientNone && opts.AnonymousAllowed:
		f.Notices = append(f.Notices, "You may consider allowing this API to by accessed by anonymous clients.")
	case s.ClientNone && !opts.AnonymousAllowed:
		f.Warnings = append(f.Warnings, "This API SHOULD NOT be accessible to anonymous clients.")
	case s.ClientNone:
		m.Client = append(m.Client, ClientNone)
	}
	if s.ClientTLSCert {
		switch {
		case s.ClientTLSCertSelfSign:
			m.Client = append(m.Client, ClientTLSCertSelfSigned)
		case opts.CASignedCertificate:
			m.Client = append(m.Client, ClientTLSCert)
		default:
			f.Notices = append(f.Notices, "This endpoint accepts only CA-signed TLS client certificates. The validator does not have one, so this method will not be tested.")
		}
	}
	if s.ClientHTTPSig {
		m.Client = append(m.Client, ClientHTTPSig)
	} else {
		f.Warnings = append(f.Warnings, "It is RECOMMENDED for all EWP server endpoints to support HTTP Signature Client Authentication. Your endpoint doesn't.")
	}
	if len(m.Client) == 0 {
		f.Errors = append(f.Errors, "Your API does not support ANY of the client authentication methods recognized by the Validator.")
	}

	// Server authentication.
	if s.ServerTLSCert {
		m.Server = append(m.Server, ServerTLSCert)
	}
	if s.ServerHTTPSig {
		m.Server = append(m.Server, ServerHTTPSig)
		if !s.ServerTLSCert {
			f.Warnings = append(f.Warnings, "Server which support HTTP Signature Server Authentication SHOULD also support TLS Server Certificate Authentication")
		}
	} else {
		f.Notices = append(f.Notices, "It is RECOMMENDED for all servers to support HTTP Signature Server Authentication.")
	}
	if len(m.Server) == 0 {
		f.Errors = append(f.Errors, "Your API does not support ANY of the server authentication methods recognized by the Validator.")
	}

	// Request encryption.
	if s.RequestTLS {
		m.Request = append(m.Request, RequestTLS)
	}
	if s.RequestEWP {
		m.Request = append(m.Request, RequestEWP)
		f.Warnings = append(f.Warnings, "It is RECOMMENDED to support only TLS request encryption")
	}
	if len(m.Request) == 0 {
		f.Errors = append(f.Errors, "Your API does not support ANY of the request encryption methods recognized by the Validator.")
	}

	// Response encryption.
	if s.ResponseTLS {
		m.Response = append(m.Response, ResponseTLS)
	}
	if s.ResponseEWP {
		m.Response = append(m.Response, ResponseEWP)
		f.Warnings = append(f.Warnings, "It is RECOMMENDED to support only TLS response encryption")
	}
	if len(m.Response) == 0 {
		f.Errors = append(f.Errors, "Your API does not support ANY of the response encryption methods recognized by the Validator.")
	}

	return m, f
}

// Preferred picks the descriptor used for auxiliary requests (fixture
// discovery): the strongest client authentication and plain TLS otherwise.
func Preferred(m Methods) (Descriptor, bool) {
	if len(m.Client) == 0 || len(m.Server) == 0 || len(m.Request) == 0 || len(m.Response) == 0 {
		return Descriptor{}, false
	}
	d := Descriptor{
		ClientAuth:         m.Client[0],
		ServerAuth:         m.Server[0],
		RequestEncryption:  m.Request[0],
		ResponseEncryption: m.Response[0],
	}
	for _, c := range m.Client {
		if c == ClientHTTPSig {
			d.ClientAuth = c
		}
	}
	return d, true
}
