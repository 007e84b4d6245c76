package transport

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
)

var (
	keysOnce   sync.Once
	clientKey  *rsa.PrivateKey
	serverKey  *rsa.PrivateKey
	keysErr    error
)

func testKeys(t *testing.T) (client, server *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		clientKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr == nil {
			serverKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		}
	})
	require.NoError(t, keysErr)
	return clientKey, serverKey
}

type keyMap map[string]catalogue.ServerKey

func (m keyMap) ServerKey(id string) (catalogue.ServerKey, bool) {
	k, ok := m[id]
	return k, ok
}
