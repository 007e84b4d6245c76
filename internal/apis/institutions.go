package apis

import (
	"context"
	"net/http"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

const (
	HEIIDParam = "hei_id"

	maxHEIIDs = "max-hei-ids"
)

// Institutions validates the Institutions API, version 2 and later.
func Institutions() suite.API {
	return suite.API{
		Name:     "institutions",
		MinMajor: 2,
		Parameters: []fixture.Parameter{{
			Name:        HEIIDParam,
			Description: "Institution covered by the host, used in every request.",
			Strategy:    fixture.CoveredHEIs(),
			// Reported by the first main phase case instead.
			Optional: true,
		}},
		Limits:           []string{maxHEIIDs},
		AnonymousAllowed: true,
		Unknown:          suite.IgnoreUnknown,
		ResponseRoot:     "institutions-response",
		Battery:          institutionsBattery,
	}
}

func institutionsBattery(st *suite.State) []suite.Case {
	heis := st.Candidates(HEIIDParam)
	hei := st.Value(HEIIDParam)
	max := st.Limit(maxHEIIDs)
	param := func(v string) transport.Param { return transport.P(HEIIDParam, v) }

	cases := []suite.Case{
		{
			Name:     "Check if this host covers any institution.",
			Critical: true,
			Check: func(context.Context, *suite.State) error {
				if len(heis) == 0 || hei == "" {
					return engine.Fail(report.StatusFailure,
						"Manifest file doesn't contain any <hei-id> field. We cannot preform tests.")
				}
				return nil
			},
		},
		{
			Name:   "Request for one of known HEI IDs, expect 200 OK.",
			Params: transport.Params{param(hei)},
			Expect: suite.OK(institutionsVerifier(hei)),
		},
		{
			Name:   "Request one unknown HEI ID, expect 200 and empty response.",
			Params: transport.Params{param(suite.FakeID)},
			Expect: suite.OK(institutionsVerifier()),
		},
	}
	if max > 1 {
		cases = append(cases, suite.Case{
			Name:   "Request one known and one unknown HEI ID, expect 200 and only one HEI in response.",
			Params: transport.Params{param(hei), param(suite.FakeID)},
			Expect: suite.OK(institutionsVerifier(hei)),
		})
	}
	cases = append(cases,
		suite.Case{
			Name:   "Request without HEI IDs, expect 400.",
			Expect: suite.Error(http.StatusBadRequest),
		},
		suite.Case{
			Name:   "Request more than <max-hei-ids> known HEIs, expect 400.",
			Params: transport.Repeat(max+1, param(hei)),
			Expect: suite.Error(http.StatusBadRequest),
		},
		suite.Case{
			Name:   "Request more than <max-hei-ids> unknown HEI IDs, expect 400.",
			Params: transport.Repeat(max+1, param(suite.FakeID)),
			Expect: suite.Error(http.StatusBadRequest),
		},
		suite.Case{
			Name:   "Request exactly <max-hei-ids> known HEI IDs, expect 200 and <max-hei-ids> HEI IDs in response.",
			Params: transport.Repeat(max, param(hei)),
			Expect: suite.OK(institutionsVerifier(hei)),
		},
	)
	cases = append(cases, suite.UnknownParameter(suite.IgnoreUnknown,
		transport.Params{param(hei)}, "hei_id_param", hei, institutionsVerifier(hei))...)
	return cases
}

// institutionsVerifier compares the returned hei-ids with expected as sets
// and checks that every root-ounit-id is one of the unit ids.
func institutionsVerifier(expected ...string) verifier.Verifier {
	return verifier.NewFunc(func(doc verifier.Document) (string, error) {
		ids, err := doc.Select("hei", "hei-id")
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			if !contains(expected, id) {
				return receivedMismatch + "It contains <hei-id>" + id + "</hei-id>, but it shouldn't. " +
					"It should contain the following: " + list(expected), nil
			}
		}
		for _, id := range expected {
			if !contains(ids, id) {
				return receivedMismatch + "It should contain the following: " + list(expected), nil
			}
		}

		roots, err := doc.Select("hei", "root-ounit-id")
		if err != nil {
			return "", err
		}
		ounits, err := doc.Select("hei", "ounit-id")
		if err != nil {
			return "", err
		}
		for _, root := range roots {
			if root != "" && !contains(ounits, root) {
				return "The response has proper HTTP status and it passed the schema validation. " +
					"However, root-ounit-id is not included in ounit-id list.", nil
			}
		}
		return "", nil
	})
}

const receivedMismatch = "The response has proper HTTP status and it passed the schema validation. " +
	"However, the set of returned hei-ids doesn't match what we expect. "
