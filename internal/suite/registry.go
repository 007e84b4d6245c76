package suite

import (
	"errors"
	"fmt"
	"sort"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
)

var (
	// ErrUnknownAPI is returned for API names no suite is registered for.
	ErrUnknownAPI = errors.New("unknown API")
	// ErrUnsupportedVersion is returned when the API is known but no suite
	// covers the requested version.
	ErrUnsupportedVersion = errors.New("API version is not supported by the validator")
)

// Registry holds the API suites. It is filled at startup and read-only
// afterwards.
type Registry struct {
	apis []API
}

// NewRegistry registers apis in order.
func NewRegistry(apis ...API) *Registry {
	r := &Registry{}
	for _, a := range apis {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a API) {
	r.apis = append(r.apis, a)
}

// Find returns the first suite for name and endpoint covering v.
func (r *Registry) Find(name, endpoint string, v semver.Version) (API, error) {
	compatible := r.Compatible(name, endpoint, v)
	if len(compatible) > 0 {
		return compatible[0], nil
	}
	for _, a := range r.apis {
		if a.Name == name && a.Endpoint == endpoint {
			return API{}, fmt.Errorf("%w: %s %s", ErrUnsupportedVersion, a.Key(), v)
		}
	}
	key := API{Name: name, Endpoint: endpoint}.Key()
	return API{}, fmt.Errorf("%w: %s", ErrUnknownAPI, key)
}

// Compatible lists every suite for name and endpoint covering v.
func (r *Registry) Compatible(name, endpoint string, v semver.Version) []API {
	var out []API
	for _, a := range r.apis {
		if a.Name == name && a.Endpoint == endpoint && a.Supports(v) {
			out = append(out, a)
		}
	}
	return out
}

// APIs lists the registered suites ordered by key, then version range.
func (r *Registry) APIs() []API {
	out := append([]API(nil), r.apis...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}
		return out[i].MinMajor < out[j].MinMajor
	})
	return out
}

// Parameters merges the parameters of all suites compatible with v. The
// first definition of a name wins.
func (r *Registry) Parameters(name, endpoint string, v semver.Version) ([]fixture.Parameter, error) {
	compatible := r.Compatible(name, endpoint, v)
	if len(compatible) == 0 {
		_, err := r.Find(name, endpoint, v)
		return nil, err
	}
	seen := map[string]bool{}
	var out []fixture.Parameter
	for _, a := range compatible {
		for _, p := range a.Parameters {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return out, nil
}
