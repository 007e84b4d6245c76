package transport

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestAcceptableCodings(t *testing.T) {
	tests := []struct {
		name   string
		header *string
		want   []string
	}{
		{"no header", nil, []string{"identity"}},
		{"gzip", strPtr("gzip"), []string{"identity", "gzip"}},
		{"ewp preferred", strPtr(AcceptEncodingEWP), []string{"identity", CodingEWP}},
		{"q zero removes", strPtr("gzip, identity;q=0"), []string{"gzip"}},
		{"star q zero", strPtr("gzip, *;q=0"), []string{"gzip"}},
		{"star q zero keeps explicit identity", strPtr("identity, *;q=0"), []string{"identity"}},
		{"case insensitive", strPtr("GZIP"), []string{"identity", "gzip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AcceptableCodings(tt.header)
			assert.Len(t, got, len(tt.want))
			for _, c := range tt.want {
				assert.True(t, got[c], c)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	resp := func(encoding string, body []byte) *Response {
		h := http.Header{}
		if encoding != "" {
			h.Set("Content-Encoding", encoding)
		}
		return &Response{Status: 200, Header: h, Body: body}
	}

	t.Run("plain", func(t *testing.T) {
		body, err := Decoder{}.Decode(resp("", []byte("ok")), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("gzip accepted", func(t *testing.T) {
		body, err := Decoder{}.Decode(resp("gzip", gzipped(t, "<x/>")), strPtr("gzip"), nil)
		require.NoError(t, err)
		assert.Equal(t, "<x/>", string(body))
	})

	t.Run("coding names ignore case", func(t *testing.T) {
		for _, encoding := range []string{"GZIP", "Gzip", "gzip"} {
			body, err := Decoder{}.Decode(resp(encoding, gzipped(t, "<x/>")), strPtr("gzip"), nil)
			require.NoError(t, err, encoding)
			assert.Equal(t, "<x/>", string(body))
		}
	})

	t.Run("gzip over the limit", func(t *testing.T) {
		_, err := Decoder{}.Decode(resp("gzip", gzipped(t, strings.Repeat("x", DefaultMaxBodySize+1))), strPtr("gzip"), nil)
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Message, "more than 16777216 bytes once decompressed")
	})

	t.Run("gzip not accepted", func(t *testing.T) {
		_, err := Decoder{}.Decode(resp("gzip", gzipped(t, "<x/>")), nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "The response was (successfully) encoded with the 'gzip' coding")
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Decoder{}.Decode(resp("br", []byte("??")), strPtr("br"), nil)
		require.Error(t, err)
		assert.Equal(t, "Unsupported Content-Encoding: br", err.Error())
	})

	t.Run("ewp without codec", func(t *testing.T) {
		_, err := Decoder{}.Decode(resp(CodingEWP, []byte("enc:x")), strPtr(AcceptEncodingEWP), nil)
		require.Error(t, err)
		assert.Equal(t, "Unsupported Content-Encoding: "+CodingEWP, err.Error())
	})

	t.Run("ewp then gzip", func(t *testing.T) {
		d := Decoder{Codec: fakeCodec{}}
		body, err := d.Decode(resp("gzip, "+CodingEWP, []byte("enc:"+string(gzipped(t, "<y/>")))),
			strPtr("gzip, "+CodingEWP), []string{CodingEWP})
		require.NoError(t, err)
		assert.Equal(t, "<y/>", string(body))
	})

	t.Run("required missing", func(t *testing.T) {
		_, err := Decoder{}.Decode(resp("", []byte("plain")), strPtr(AcceptEncodingEWP), []string{CodingEWP})
		require.Error(t, err)
		assert.Equal(t, "Expecting the response to be encoded with "+CodingEWP, err.Error())
		var de *DecodeError
		assert.ErrorAs(t, err, &de)
	})
}
