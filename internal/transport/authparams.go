package transport

import (
	"strings"
)

// Challenge is one parsed WWW-Authenticate challenge.
type Challenge struct {
	Scheme string
	Params map[string]string
}

// ParseChallenges parses a WWW-Authenticate header value. Parameter names are
// lowercased; quoted values are unescaped.
func ParseChallenges(header string) []Challenge {
	var out []Challenge
	s := strings.TrimSpace(header)
	for s != "" {
		scheme, rest := readToken(s)
		if scheme == "" {
			break
		}
		ch := Challenge{Scheme: scheme, Params: map[string]string{}}
		rest = strings.TrimLeft(rest, " \t")
		for {
			name, after := readToken(rest)
			after = strings.TrimLeft(after, " \t")
			if name == "" || !strings.HasPrefix(after, "=") {
				break
			}
			value, tail, ok := readValue(strings.TrimLeft(after[1:], " \t"))
			if !ok {
				break
			}
			ch.Params[strings.ToLower(name)] = value
			rest = strings.TrimLeft(tail, " \t")
			if !strings.HasPrefix(rest, ",") {
				break
			}
			rest = strings.TrimLeft(rest[1:], " \t")
		}
		out = append(out, ch)
		if rest == s {
			break
		}
		s = strings.TrimLeft(rest, " \t,")
	}
	return out
}

// FindChallenge returns the challenge with the given scheme.
func FindChallenge(header, scheme string) (Challenge, bool) {
	for _, c := range ParseChallenges(header) {
		if strings.EqualFold(c.Scheme, scheme) {
			return c, true
		}
	}
	return Challenge{}, false
}

// ParseSignatureHeader parses the params of a Signature header, or of an
// Authorization header using the Signature scheme.
func ParseSignatureHeader(value string) (map[string]string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, false
	}
	if len(v) > 10 && strings.EqualFold(v[:10], "signature ") {
		v = v[10:]
	}
	chs := ParseChallenges("Signature " + v)
	if len(chs) == 0 || len(chs[0].Params) == 0 {
		return nil, false
	}
	return chs[0].Params, true
}

func isTokenChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

func readToken(s string) (token, rest string) {
	i := 0
	for i < len(s) && isTokenChar(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func readValue(s string) (value, rest string, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		// token68 values such as base64 may end with '='.
		i := 0
		for i < len(s) && (isTokenChar(s[i]) || s[i] == '/' || s[i] == '=') {
			i++
		}
		return s[:i], s[i:], i > 0
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", false
}
