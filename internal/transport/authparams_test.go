package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenges(t *testing.T) {
	chs := ParseChallenges(`Basic realm="x", Signature realm="EWP", algorithms="rsa-sha256", headers="(request-target) host date digest x-request-id"`)
	require.Len(t, chs, 2)
	assert.Equal(t, "Basic", chs[0].Scheme)
	assert.Equal(t, "x", chs[0].Params["realm"])
	assert.Equal(t, "Signature", chs[1].Scheme)
	assert.Equal(t, "EWP", chs[1].Params["realm"])
	assert.Equal(t, "rsa-sha256", chs[1].Params["algorithms"])
	assert.Equal(t, "(request-target) host date digest x-request-id", chs[1].Params["headers"])

	ch, ok := FindChallenge(`signature Realm=EWP`, "Signature")
	require.True(t, ok)
	assert.Equal(t, "EWP", ch.Params["realm"])

	_, ok = FindChallenge(`Basic realm="x"`, "Signature")
	assert.False(t, ok)
	assert.Empty(t, ParseChallenges(""))
}

func TestParseSignatureHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
		sig   string
	}{
		{"bare", `keyId="abc",algorithm="rsa-sha256",headers="date digest",signature="c2ln/+=="`, true, "c2ln/+=="},
		{"authorization", `Signature keyId="abc",signature="xyz"`, true, "xyz"},
		{"escaped", `keyId="a\"b",signature="s"`, true, "s"},
		{"empty", ``, false, ""},
		{"garbage", `@@@`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := ParseSignatureHeader(tt.value)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.sig, params["signature"])
			}
		})
	}
}
