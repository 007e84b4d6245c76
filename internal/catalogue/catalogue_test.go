package catalogue

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicPEM(t *testing.T) (string, *rsa.PublicKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), &key.PublicKey
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return prefix + strings.Join(lines, "\n"+prefix)
}

func sampleYAML(keyPEM string) string {
	return fmt.Sprintf(`
hosts:
  - name: University of Example
    heis: [uni.example.org, college.example.org]
    serverKeys:
      - |
%s
    apis:
      - name: institutions
        version: 2.0.0
        url: https://ewp.uni.example.org/institutions
        params:
          max-hei-ids: "2"
        httpSecurity:
          client-auth-methods: [none, httpsig]
      - name: iias
        version: 7.0.0
        endpoints:
          index: https://ewp.uni.example.org/iias/index
          get: https://ewp.uni.example.org/iias/get
  - name: Other
    heis: [other.example.org]
    apis:
      - name: institutions
        version: 2.0.0
        url: https://other.example.org/inst
`, indent(keyPEM, "        "))
}

func TestParseAndLookups(t *testing.T) {
	keyPEM, pub := publicPEM(t)
	c, err := Parse([]byte(sampleYAML(keyPEM)))
	require.NoError(t, err)

	hosts, apis, heis := c.Stats()
	assert.Equal(t, 2, hosts)
	assert.Equal(t, 3, apis)
	assert.Equal(t, 3, heis)

	t.Run("covered heis", func(t *testing.T) {
		assert.Equal(t, []string{"uni.example.org", "college.example.org"},
			c.CoveredHEIs("https://ewp.uni.example.org/iias/get"))
		assert.Empty(t, c.CoveredHEIs("https://unknown.example.org"))
	})

	t.Run("api urls", func(t *testing.T) {
		assert.Equal(t, []string{"https://ewp.uni.example.org/institutions"},
			c.APIURLs("college.example.org", "institutions", ""))
		assert.Equal(t, []string{"https://ewp.uni.example.org/iias/index"},
			c.APIURLs("uni.example.org", "iias", "index"))
		assert.Empty(t, c.APIURLs("other.example.org", "iias", "index"))
	})

	t.Run("find entries matches version exactly", func(t *testing.T) {
		entries := c.FindEntries("institutions", "2.0.0", "", "https://ewp.uni.example.org/institutions")
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, "University of Example", e.Host)
		assert.Equal(t, "2", e.Params["max-hei-ids"])
		assert.Equal(t, []string{"none", "httpsig"}, e.Security.ClientAuth)
		require.Len(t, e.ServerKeyIDs, 1)

		assert.Empty(t, c.FindEntries("institutions", "2.0.1", "", "https://ewp.uni.example.org/institutions"))
	})

	t.Run("entry by url", func(t *testing.T) {
		e, ok := c.EntryByURL("https://ewp.uni.example.org/iias/index")
		require.True(t, ok)
		assert.Equal(t, "iias", e.Name)
		assert.Equal(t, "https://ewp.uni.example.org/iias/get", e.URLFor("get"))

		_, ok = c.EntryByURL("https://nowhere.example.org")
		assert.False(t, ok)
	})

	t.Run("server key", func(t *testing.T) {
		id, err := KeyID(pub)
		require.NoError(t, err)
		k, ok := c.ServerKey(strings.ToUpper(id))
		require.True(t, ok)
		assert.Equal(t, pub.N, k.Public.N)
		assert.True(t, k.Covers("https://ewp.uni.example.org/iias/get"))
		assert.False(t, k.Covers("https://other.example.org/inst"))
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "hosts: [\n"},
		{"bad key", "hosts:\n  - serverKeys: [\"not a key\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
