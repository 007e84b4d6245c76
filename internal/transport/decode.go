package transport

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// DecodeError is a response whose content codings could not be removed.
// Every DecodeError is a FAILURE of the target.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

// Decoder removes content codings from response bodies.
type Decoder struct {
	// Codec handles ewp-rsa-aes128gcm. Without it that coding is unsupported.
	Codec Codec
}

// Decode removes the codings listed in Content-Encoding, last applied first,
// and returns the plain body. acceptEncoding is the request's Accept-Encoding
// value or nil when none was sent; required lists codings the response must
// have used.
func (d Decoder) Decode(resp *Response, acceptEncoding *string, required []string) ([]byte, error) {
	acceptable := AcceptableCodings(acceptEncoding)
	unsatisfied := make(map[string]bool, len(required))
	for _, r := range required {
		unsatisfied[strings.ToLower(r)] = true
	}

	body := resp.Body
	codings := commaTokens(resp.Header.Get("Content-Encoding"))
	for i := len(codings) - 1; i >= 0; i-- {
		coding := codings[i]
		lower := strings.ToLower(coding)
		decoded, err := d.decodeOne(lower, body)
		if err != nil {
			return nil, err
		}
		body = decoded
		delete(unsatisfied, lower)
		if !acceptable[lower] {
			return nil, &DecodeError{Message: fmt.Sprintf("The response was (successfully) encoded with the '%s' "+
				"coding, but the client didn't declare this encoding as acceptable "+
				"(it wasn't allowed in the Accept-Encoding header).", coding)}
		}
	}

	if len(unsatisfied) > 0 {
		var names []string
		for _, r := range required {
			if unsatisfied[strings.ToLower(r)] {
				names = append(names, r)
				delete(unsatisfied, strings.ToLower(r))
			}
		}
		return nil, &DecodeError{Message: "Expecting the response to be encoded with " + strings.Join(names, " and ")}
	}
	return body, nil
}

func (d Decoder) decodeOne(coding string, body []byte) ([]byte, error) {
	switch coding {
	case "identity":
		return body, nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, &DecodeError{Message: "Could not decode gzip-encoded response: " + err.Error()}
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, DefaultMaxBodySize+1))
		if err != nil {
			return nil, &DecodeError{Message: "Could not decode gzip-encoded response: " + err.Error()}
		}
		if len(out) > DefaultMaxBodySize {
			return nil, &DecodeError{Message: fmt.Sprintf("Could not decode gzip-encoded response: "+
				"%v, more than %d bytes once decompressed.", ErrBodyTooLarge, DefaultMaxBodySize)}
		}
		return out, nil
	case CodingEWP:
		if d.Codec == nil {
			break
		}
		out, err := d.Codec.DecryptResponse(body)
		if err != nil {
			return nil, &DecodeError{Message: "Could not decrypt " + CodingEWP + " response: " + err.Error()}
		}
		return out, nil
	}
	return nil, &DecodeError{Message: "Unsupported Content-Encoding: " + coding}
}

// AcceptableCodings lists the codings allowed by an Accept-Encoding value.
// identity is acceptable unless excluded explicitly or through "*;q=0".
func AcceptableCodings(header *string) map[string]bool {
	out := map[string]bool{"identity": true}
	if header == nil {
		return out
	}
	identityExplicit := false
	for _, entry := range commaTokens(strings.ToLower(*header)) {
		var params []string
		for _, p := range strings.Split(entry, ";") {
			if p = strings.TrimSpace(p); p != "" {
				params = append(params, p)
			}
		}
		if len(params) == 0 {
			continue
		}
		coding := params[0]
		acceptable := true
		for _, p := range params[1:] {
			if p == "q=0" {
				acceptable = false
			}
		}
		switch {
		case coding == "*":
			if !acceptable && !identityExplicit {
				delete(out, "identity")
			}
		case acceptable:
			out[coding] = true
			if coding == "identity" {
				identityExplicit = true
			}
		default:
			delete(out, coding)
		}
	}
	return out
}

func commaTokens(v string) []string {
	var out []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
