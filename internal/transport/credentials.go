package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/config"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// FreshCredentialsAge is how long the registry needs to propagate newly
// published validator keys to every participant.
const FreshCredentialsAge = 10 * time.Minute

// Identity is one set of keys a participant authenticates with.
type Identity struct {
	TLS          *tls.Certificate
	TLSExpiresAt time.Time
	Signer       Signer
}

// Usable reports whether the identity can authenticate with c. caSigned is
// the shared CA-signed client certificate, if any.
func (id *Identity) Usable(c security.ClientAuth, caSigned *tls.Certificate) bool {
	switch c {
	case security.ClientNone:
		return true
	case security.ClientHTTPSig:
		return id != nil && id.Signer != nil
	case security.ClientTLSCertSelfSigned:
		return id != nil && id.TLS != nil
	case security.ClientTLSCert:
		return caSigned != nil
	}
	return false
}

// Credentials are the keys available to a validation run. They are loaded
// once and shared read-only between runs.
type Credentials struct {
	Primary     Identity
	CASignedTLS *tls.Certificate
	// Secondary is nil unless keys of another participant were configured.
	Secondary   *Identity
	PublishedAt time.Time
}

// HasCASigned reports whether a CA-signed client certificate is present.
func (c *Credentials) HasCASigned() bool {
	return c != nil && c.CASignedTLS != nil
}

// Usable reports whether the primary identity, or the secondary one when
// secondary is set, can authenticate with a.
func (c *Credentials) Usable(a security.ClientAuth, secondary bool) bool {
	if c == nil {
		return a == security.ClientNone
	}
	id := &c.Primary
	if secondary {
		id = c.Secondary
	}
	return id.Usable(a, c.CASignedTLS)
}

// Fresh reports whether the credentials are too young to be known by every
// target, and how old they are.
func (c *Credentials) Fresh(now time.Time) (bool, time.Duration) {
	if c == nil || c.PublishedAt.IsZero() {
		return false, 0
	}
	age := now.Sub(c.PublishedAt)
	return age < FreshCredentialsAge, age
}

// ClientCertificate picks the TLS certificate presented for c, or nil.
func (id *Identity) ClientCertificate(c security.ClientAuth, caSigned *tls.Certificate) *tls.Certificate {
	switch c {
	case security.ClientTLSCertSelfSigned:
		if id == nil {
			return nil
		}
		return id.TLS
	case security.ClientTLSCert:
		return caSigned
	}
	return nil
}

// LoadCredentials reads every configured key file.
func LoadCredentials(cfg config.CredentialsConfig) (*Credentials, error) {
	creds := &Credentials{PublishedAt: cfg.PublishedAt}

	primary, err := loadIdentity(cfg.TLS, cfg.HTTPSigKeyFile)
	if err != nil {
		return nil, err
	}
	creds.Primary = *primary

	if cfg.CASignedTLS.Configured() {
		cert, _, err := loadKeyPair(cfg.CASignedTLS)
		if err != nil {
			return nil, fmt.Errorf("CA-signed certificate: %w", err)
		}
		creds.CASignedTLS = cert
	}

	if cfg.Secondary.Configured() {
		secondary, err := loadIdentity(cfg.Secondary.TLS, cfg.Secondary.HTTPSigKeyFile)
		if err != nil {
			return nil, fmt.Errorf("secondary credentials: %w", err)
		}
		creds.Secondary = secondary
	}

	logging.Info("Credentials", "Loaded client credentials (tls=%t, httpsig=%t, caSigned=%t, secondary=%t)",
		creds.Primary.TLS != nil, creds.Primary.Signer != nil, creds.CASignedTLS != nil, creds.Secondary != nil)
	return creds, nil
}

func loadIdentity(pair config.KeyPair, sigKey string) (*Identity, error) {
	id := &Identity{}
	if pair.Configured() {
		cert, expires, err := loadKeyPair(pair)
		if err != nil {
			return nil, err
		}
		id.TLS = cert
		id.TLSExpiresAt = expires
	}
	if sigKey != "" {
		signer, err := LoadHTTPSigSigner(sigKey)
		if err != nil {
			return nil, err
		}
		id.Signer = signer
	}
	return id, nil
}

func loadKeyPair(pair config.KeyPair) (*tls.Certificate, time.Time, error) {
	cert, err := tls.LoadX509KeyPair(pair.CertFile, pair.KeyFile)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load client certificate: %w", err)
	}
	var expires time.Time
	if len(cert.Certificate) > 0 {
		if parsed, parseErr := x509.ParseCertificate(cert.Certificate[0]); parseErr == nil {
			expires = parsed.NotAfter
			if time.Now().After(expires) {
				logging.Warn("Credentials", "Client certificate %s expired at %s", pair.CertFile, expires.Format(time.RFC3339))
			}
		}
	}
	return &cert, expires, nil
}
