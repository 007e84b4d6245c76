package verifier

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/tidwall/gjson"
)

// Document is a parsed response body that selectors run against.
type Document interface {
	// Select returns the text of every node reached by following path from
	// the document root. Repeated nodes and arrays are flattened. An element
	// may end with a 1-based position, e.g. "partner[1]", to keep only that
	// child of each parent.
	Select(path ...string) ([]string, error)
	// RootName is the local name of the XML root element, or "" for JSON.
	RootName() string
}

// XMLDocument selects by local element name, ignoring namespaces.
type XMLDocument struct {
	root *xmlquery.Node
}

// ParseXML parses an XML body.
func ParseXML(body []byte) (*XMLDocument, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return &XMLDocument{root: n}, nil
		}
	}
	return nil, fmt.Errorf("failed to parse XML response: no root element")
}

func (d *XMLDocument) RootName() string {
	return d.root.Data
}

func (d *XMLDocument) Select(path ...string) ([]string, error) {
	if len(path) == 0 {
		return []string{strings.TrimSpace(d.root.InnerText())}, nil
	}
	steps := make([]string, len(path))
	for i, p := range path {
		name, pos, err := parseElement(p)
		if err != nil {
			return nil, err
		}
		steps[i] = fmt.Sprintf("*[local-name()='%s']", name)
		if pos > 0 {
			steps[i] += "[" + strconv.Itoa(pos) + "]"
		}
	}
	nodes, err := xmlquery.QueryAll(d.root, strings.Join(steps, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid selector %v: %w", path, err)
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(n.InnerText()))
	}
	return out, nil
}

// JSONDocument selects object members by name. Arrays met on the way are
// flattened.
type JSONDocument struct {
	root gjson.Result
}

// ParseJSON parses a JSON body.
func ParseJSON(body []byte) (*JSONDocument, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse JSON response: invalid JSON")
	}
	return &JSONDocument{root: gjson.ParseBytes(body)}, nil
}

func (d *JSONDocument) RootName() string { return "" }

func (d *JSONDocument) Select(path ...string) ([]string, error) {
	current := []gjson.Result{d.root}
	for _, p := range path {
		name, pos, err := parseElement(p)
		if err != nil {
			return nil, err
		}
		var next []gjson.Result
		for _, r := range current {
			v := r.Get(gjsonEscape(name))
			if !v.Exists() {
				continue
			}
			values := []gjson.Result{v}
			if v.IsArray() {
				values = v.Array()
			}
			if pos > 0 {
				if pos > len(values) {
					continue
				}
				values = values[pos-1 : pos]
			}
			next = append(next, values...)
		}
		current = next
	}
	out := make([]string, 0, len(current))
	for _, r := range current {
		out = append(out, r.String())
	}
	return out, nil
}

var selectorElement = regexp.MustCompile(`^([^'"\[\]/]+)(?:\[([1-9][0-9]*)\])?$`)

// parseElement splits "partner[1]" into its name and position. The
// position is 0 when absent.
func parseElement(p string) (string, int, error) {
	m := selectorElement.FindStringSubmatch(p)
	if m == nil {
		return "", 0, fmt.Errorf("invalid selector element %q", p)
	}
	if m[2] == "" {
		return m[1], 0, nil
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid selector element %q: %w", p, err)
	}
	return m[1], pos, nil
}

func gjsonEscape(name string) string {
	var b strings.Builder
	for _, c := range name {
		if strings.ContainsRune(`.*?|#@\!=<>%`, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Parse picks the parser from the content type, falling back to sniffing
// the first byte.
func Parse(contentType string, body []byte) (Document, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return ParseJSON(body)
	case strings.Contains(ct, "xml"):
		return ParseXML(body)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return ParseJSON(body)
	}
	return ParseXML(body)
}
