package catalogue

import (
	"crypto/rsa"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
)

// Catalogue is a snapshot of the registry catalogue: every host in the
// federation, the institutions it covers and the APIs it implements.
type Catalogue struct {
	Hosts []Host `yaml:"hosts"`

	serverKeys map[string]ServerKey
	hostKeyIDs [][]string
}

// Host is one manifest source.
type Host struct {
	Name string   `yaml:"name,omitempty"`
	HEIs []string `yaml:"heis,omitempty"`
	APIs []API    `yaml:"apis,omitempty"`
	// ServerKeys are PEM encoded RSA public keys the host signs responses
	// and decrypts requests with.
	ServerKeys []string `yaml:"serverKeys,omitempty"`
}

// API is one apis-implemented entry of a host.
type API struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// URL is the endpoint of single-endpoint APIs.
	URL string `yaml:"url,omitempty"`
	// Endpoints maps endpoint names (index, get, ...) to URLs for APIs with
	// more than one endpoint.
	Endpoints map[string]string `yaml:"endpoints,omitempty"`
	// Params are the API specific manifest parameters, such as max-hei-ids.
	Params   map[string]string         `yaml:"params,omitempty"`
	Security security.ManifestSecurity `yaml:"httpSecurity,omitempty"`
}

// URLFor returns the URL of the named endpoint. An empty name selects URL.
func (a API) URLFor(endpoint string) string {
	if endpoint == "" {
		return a.URL
	}
	return a.Endpoints[endpoint]
}

// urls lists every URL the entry declares.
func (a API) urls() []string {
	var out []string
	if a.URL != "" {
		out = append(out, a.URL)
	}
	for _, u := range a.Endpoints {
		out = append(out, u)
	}
	return out
}

// Entry is an API entry together with facts about the host that serves it.
type Entry struct {
	API
	Host string
	// HEIs are the institutions covered by the host.
	HEIs []string
	// ServerKeyIDs are the ids of the host's server keys.
	ServerKeyIDs []string
}

// ServerKey is a registered server public key.
type ServerKey struct {
	ID     string
	Public *rsa.PublicKey
	// URLs are the API URLs of the host the key belongs to.
	URLs []string
}

// Covers reports whether the key may authenticate responses from url.
func (k ServerKey) Covers(url string) bool {
	for _, u := range k.URLs {
		if u == url {
			return true
		}
	}
	return false
}

// Lookup is the read side of the catalogue used by validation runs.
type Lookup interface {
	// CoveredHEIs returns the institutions covered by the host that
	// serves url.
	CoveredHEIs(url string) []string
	// APIURLs returns the URLs of api (and endpoint) on hosts covering hei.
	APIURLs(hei, api, endpoint string) []string
	// FindEntries returns the entries of api with exactly this version
	// whose endpoint URL is url.
	FindEntries(api, version, endpoint, url string) []Entry
	// EntryByURL returns the first entry serving url.
	EntryByURL(url string) (Entry, bool)
	// ServerKey resolves a key id.
	ServerKey(keyID string) (ServerKey, bool)
}
