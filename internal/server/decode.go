package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
)

// formParam carries overrides in form bodies as name=value.
const formParam = "param"

// decodeRequest reads a validate request from a JSON or a form body. Both
// are reduced to a generic map and decoded with the request's mapstructure
// tags, so the two encodings accept the same field names.
func decodeRequest(w http.ResponseWriter, r *http.Request) (suite.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var raw map[string]any
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "", jsonMediaType:
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return suite.Request{}, fmt.Errorf("invalid JSON body: %w", err)
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if raw, err = formMap(r); err != nil {
			return suite.Request{}, err
		}
	default:
		return suite.Request{}, fmt.Errorf("unsupported content type %q", mediaType)
	}

	var req suite.Request
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return suite.Request{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return suite.Request{}, fmt.Errorf("invalid validation request: %w", err)
	}
	return req, nil
}

func formMap(r *http.Request) (map[string]any, error) {
	if err := r.ParseMultipartForm(maxBodySize); err != nil && err != http.ErrNotMultipart {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	raw := make(map[string]any, len(r.PostForm))
	params := map[string]any{}
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		if key != formParam {
			raw[key] = values[0]
			continue
		}
		for _, kv := range values {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid %s %q, expected name=value", formParam, kv)
			}
			params[name] = value
		}
	}
	if len(params) > 0 {
		raw["parameters"] = params
	}
	return raw, nil
}
