package fixture

import (
	"context"
	"strconv"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Limit reads an integer manifest parameter such as max-hei-ids. Missing or
// malformed values count as 1.
func Limit(manifest map[string]string, name string) int {
	raw, ok := manifest[name]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Fixed always yields the given values.
func Fixed(values ...string) Strategy {
	return func(context.Context, Env, *Values) ([]string, error) {
		return append([]string(nil), values...), nil
	}
}

// CoveredHEIs yields the institutions covered by the host of the endpoint.
func CoveredHEIs() Strategy {
	return func(_ context.Context, env Env, _ *Values) ([]string, error) {
		if env.Catalogue == nil {
			return nil, nil
		}
		return env.Catalogue.CoveredHEIs(env.URL), nil
	}
}

// ParamsFunc builds the query of a discovery request from the values
// resolved so far.
type ParamsFunc func(vals *Values) transport.Params

// FromTarget queries the endpoint under test and selects path from the
// response.
func FromTarget(params ParamsFunc, path ...string) Strategy {
	return func(ctx context.Context, env Env, vals *Values) ([]string, error) {
		if env.Probe == nil {
			return nil, nil
		}
		doc, err := env.Probe.Fetch(ctx, env.URL, params(vals))
		if err != nil {
			return nil, err
		}
		return doc.Select(path...)
	}
}

// FromAPI looks for values in another API of the institutions that are
// candidates of heiParam. The first institution that yields anything wins
// and heiParam is narrowed to it. perHEI builds the request for one
// institution.
func FromAPI(api, endpoint, heiParam string, perHEI func(hei string, vals *Values) transport.Params, path ...string) Strategy {
	return func(ctx context.Context, env Env, vals *Values) ([]string, error) {
		if env.Catalogue == nil || env.Probe == nil {
			return nil, nil
		}
		heis := vals.Candidates(heiParam)
		if vals.UserProvided(heiParam) {
			heis = []string{vals.Value(heiParam)}
		}
		for _, hei := range heis {
			for _, url := range env.Catalogue.APIURLs(hei, api, endpoint) {
				doc, err := env.Probe.Fetch(ctx, url, perHEI(hei, vals))
				if err != nil {
					logging.Debug("Fixture", "Lookup in %s at %s failed: %v", api, url, err)
					continue
				}
				found, err := doc.Select(path...)
				if err != nil {
					return nil, err
				}
				if len(found) == 0 {
					continue
				}
				if err := vals.Narrow(heiParam, hei); err != nil {
					return nil, err
				}
				return found, nil
			}
		}
		return nil, nil
	}
}

// First tries strategies in order and returns the first non-empty result.
func First(strategies ...Strategy) Strategy {
	return func(ctx context.Context, env Env, vals *Values) ([]string, error) {
		for _, s := range strategies {
			found, err := s(ctx, env, vals)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				return found, nil
			}
		}
		return nil, nil
	}
}
