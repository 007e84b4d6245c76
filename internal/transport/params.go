package transport

import (
	"net/url"
	"strings"
)

// Param is one name=value pair. Params keep their order and duplicates,
// which many checks depend on (?id=1&id=1 is not ?id=1).
type Param struct {
	Name  string
	Value string
}

// Params is an ordered parameter list.
type Params []Param

// P builds a Param.
func P(name, value string) Param {
	return Param{Name: name, Value: value}
}

// Repeat returns n copies of p.
func Repeat(n int, p Param) Params {
	if n <= 0 {
		return nil
	}
	out := make(Params, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// With returns a new list holding ps followed by more.
func (ps Params) With(more ...Param) Params {
	out := make(Params, 0, len(ps)+len(more))
	out = append(out, ps...)
	return append(out, more...)
}

// Concat joins lists into a new one.
func Concat(lists ...Params) Params {
	var out Params
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Encode renders the list as application/x-www-form-urlencoded text.
func (ps Params) Encode() string {
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// AppendToURL adds the encoded list to the query of rawURL.
func (ps Params) AppendToURL(rawURL string) string {
	if len(ps) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	return rawURL + sep + ps.Encode()
}
