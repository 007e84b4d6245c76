package catalogue

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var _ Lookup = (*Catalogue)(nil)

// Parse decodes a YAML catalogue snapshot and indexes its server keys.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a snapshot from disk.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", path, err)
	}
	return Parse(data)
}

func (c *Catalogue) index() error {
	c.serverKeys = make(map[string]ServerKey)
	c.hostKeyIDs = make([][]string, len(c.Hosts))
	for hi, h := range c.Hosts {
		var urls []string
		for _, a := range h.APIs {
			urls = append(urls, a.urls()...)
		}
		for ki, p := range h.ServerKeys {
			pub, err := ParsePublicKey([]byte(p))
			if err != nil {
				return fmt.Errorf("host %d (%s) server key %d: %w", hi, h.Name, ki, err)
			}
			id, err := KeyID(pub)
			if err != nil {
				return err
			}
			c.serverKeys[id] = ServerKey{ID: id, Public: pub, URLs: urls}
			c.hostKeyIDs[hi] = append(c.hostKeyIDs[hi], id)
		}
	}
	return nil
}

// ParsePublicKey decodes a PEM "PUBLIC KEY" block holding an RSA key.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, expected RSA", key)
	}
	return rsaKey, nil
}

// KeyID is the hex SHA-256 fingerprint of the DER encoded public key, the
// form in which keys are referenced in the federation.
func KeyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Catalogue) hostServing(url string) (Host, bool) {
	for _, h := range c.Hosts {
		for _, a := range h.APIs {
			for _, u := range a.urls() {
				if u == url {
					return h, true
				}
			}
		}
	}
	return Host{}, false
}

func (c *Catalogue) entry(hi int, a API) Entry {
	h := c.Hosts[hi]
	e := Entry{API: a, Host: h.Name, HEIs: append([]string(nil), h.HEIs...)}
	if hi < len(c.hostKeyIDs) {
		e.ServerKeyIDs = append([]string(nil), c.hostKeyIDs[hi]...)
	}
	return e
}

// CoveredHEIs implements Lookup.
func (c *Catalogue) CoveredHEIs(url string) []string {
	h, ok := c.hostServing(url)
	if !ok {
		return nil
	}
	return append([]string(nil), h.HEIs...)
}

// APIURLs implements Lookup.
func (c *Catalogue) APIURLs(hei, api, endpoint string) []string {
	var out []string
	for _, h := range c.Hosts {
		if !contains(h.HEIs, hei) {
			continue
		}
		for _, a := range h.APIs {
			if a.Name != api {
				continue
			}
			if u := a.URLFor(endpoint); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// FindEntries implements Lookup.
func (c *Catalogue) FindEntries(api, version, endpoint, url string) []Entry {
	var out []Entry
	for hi, h := range c.Hosts {
		for _, a := range h.APIs {
			if a.Name == api && a.Version == version && strings.TrimSpace(a.URLFor(endpoint)) == url {
				out = append(out, c.entry(hi, a))
			}
		}
	}
	return out
}

// EntryByURL implements Lookup.
func (c *Catalogue) EntryByURL(url string) (Entry, bool) {
	for hi, h := range c.Hosts {
		for _, a := range h.APIs {
			if contains(a.urls(), url) {
				return c.entry(hi, a), true
			}
		}
	}
	return Entry{}, false
}

// ServerKey implements Lookup.
func (c *Catalogue) ServerKey(keyID string) (ServerKey, bool) {
	k, ok := c.serverKeys[strings.ToLower(keyID)]
	return k, ok
}

// Stats summarizes the snapshot for logs and metrics.
func (c *Catalogue) Stats() (hosts, apis, heis int) {
	seen := make(map[string]struct{})
	for _, h := range c.Hosts {
		apis += len(h.APIs)
		for _, hei := range h.HEIs {
			seen[hei] = struct{}{}
		}
	}
	return len(c.Hosts), apis, len(seen)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
