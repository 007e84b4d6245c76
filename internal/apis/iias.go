package apis

import (
	"context"
	"errors"
	"net/http"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

const (
	IIAIDParam        = "iia_id"
	PartnerHEIIDParam = "partner_hei_id"

	iiasAPI = "iias"
)

var (
	iiaIDs = verifier.NewFactory("iia-id")
	// The first partner of an IIA is the institution that answers.
	iiaPartnerIDs   = verifier.NewFactory("iia", "partner[1]", "iia-id")
	iiaPartnerCodes = []string{"iia", "partner[1]", "iia-code"}
)

const (
	maxIIAIDs   = "max-iia-ids"
	maxIIACodes = "max-iia-codes"
)

// the mobility specifications of an IIA that carry academic years
var mobilitySpecs = []string{
	"student-studies-mobility-spec",
	"student-traineeship-mobility-spec",
	"staff-teacher-mobility-spec",
	"staff-training-mobility-spec",
}

// IIAsIndex validates the index endpoint of the IIAs API, version 6 and
// later.
func IIAsIndex() suite.API {
	return suite.API{
		Name:     iiasAPI,
		Endpoint: "index",
		MinMajor: 6,
		Parameters: []fixture.Parameter{
			{
				Name:        HEIIDParam,
				Description: "Institution covered by the host.",
				Strategy:    fixture.CoveredHEIs(),
			},
			{
				Name:        IIAIDParam,
				DependsOn:   []string{HEIIDParam},
				BlockedBy:   []string{PartnerHEIIDParam},
				Description: "This parameter is used to fetch partner_hei_id and receiving_academic_year_id using GET endpoint.",
				Strategy: fixture.FromTarget(func(vals *fixture.Values) transport.Params {
					return transport.Params{transport.P(HEIIDParam, vals.Value(HEIIDParam))}
				}, "iia-id"),
				Step:     "Find iia-id to work with.",
				Optional: true,
			},
			{
				Name:        PartnerHEIIDParam,
				DependsOn:   []string{HEIIDParam},
				BlockedBy:   []string{IIAIDParam},
				Description: "Partner of an agreement of hei_id.",
				Optional:    true,
			},
			{
				Name:        suite.AcademicYearParam,
				DependsOn:   []string{HEIIDParam, PartnerHEIIDParam},
				BlockedBy:   []string{IIAIDParam},
				Description: "Academic year of an agreement between hei_id and partner_hei_id.",
				Optional:    true,
			},
		},
		AnonymousAllowed: false,
		Unknown:          suite.IgnoreUnknown,
		ResponseRoot:     "iias-index-response",
		Setup:            iiasSetup,
		Battery:          iiasIndexBattery,
	}
}

// iiasSetup reads the partner and the academic years of the selected IIA
// from the get endpoint, unless the partner was given.
func iiasSetup(env suite.SetupEnv) []engine.Step {
	st := env.State
	iia := st.Value(IIAIDParam)
	if st.Value(PartnerHEIIDParam) != "" || iia == "" {
		return nil
	}
	hei := st.Value(HEIIDParam)
	return []engine.Step{{
		Name: "Use 'get' endpoint to retrieve info about selected IIA.",
		Run: func(ctx context.Context, _ *engine.StepContext) error {
			urls := env.Catalogue.APIURLs(hei, iiasAPI, "get")
			if len(urls) == 0 {
				return engine.Fail(report.StatusNotice, "Couldn't find correct 'get' endpoint url in catalogue.")
			}
			doc, err := env.Probe.Fetch(ctx, urls[0], transport.Params{
				transport.P(HEIIDParam, hei),
				transport.P(IIAIDParam, iia),
			})
			if err != nil {
				var te *transport.TimeoutError
				if errors.As(err, &te) {
					return engine.Fail(report.StatusError, "Request to 'get' endpoint timed out.")
				}
				return engine.Fail(report.StatusNotice, "Request to 'get' endpoint failed: %v", err)
			}
			partners, err := doc.Select("iia", "partner", "hei-id")
			if err != nil {
				return err
			}
			switch {
			case len(partners) == 0:
				return engine.Fail(report.StatusNotice, "Received 200 OK but the response did not contain any IIA, "+
					"but we requested one. Consult tests for 'get' endpoint.")
			case partners[0] != hei:
				return engine.Fail(report.StatusNotice, "Received 200 OK but <hei-id> of first <partner> was different "+
					"than we requested.Consult tests for 'get' endpoint.")
			case len(partners) > 1:
				st.Discover(PartnerHEIIDParam, partners[1])
			}

			var years []string
			for _, spec := range mobilitySpecs {
				found, err := doc.Select("iia", "cooperation-conditions", spec, "receiving-academic-year-id")
				if err != nil {
					return err
				}
				years = appendDistinct(years, found...)
			}
			st.Discover(suite.AcademicYearParam, years...)
			return nil
		},
	}}
}

const (
	iiasNonEmpty = "Request one known hei_id, expect 200 OK and non-empty response."
	iiasEmpty    = "IIAs list of the known hei_id was empty."
)

func iiasIndexBattery(st *suite.State) []suite.Case {
	hei := st.Value(HEIIDParam)
	partner := st.Value(PartnerHEIIDParam)
	year := st.Value(suite.AcademicYearParam)
	known := transport.Params{transport.P(HEIIDParam, hei)}
	badRequest := suite.Error(http.StatusBadRequest)

	cases := []suite.Case{
		{
			Name:   "Request one known hei_id, expect 200 OK.",
			Params: known,
			Expect: suite.OK(iiaIDs.BeCorrect()),
		},
		{
			Name:   iiasNonEmpty,
			Params: known,
			Expect: suite.OK(iiaIDs.NotBeEmpty()).WithSeverity(report.StatusNotice),
		},
		{
			Name:   "Request with known hei_id and unknown hei_id, expect 400.",
			Params: known.With(transport.P(HEIIDParam, suite.FakeID)),
			Expect: badRequest,
		},
		{
			Name:   "Request with unknown hei_id, expect 400.",
			Params: transport.Params{transport.P(HEIIDParam, suite.FakeID)},
			Expect: badRequest,
		},
	}
	cases = append(cases, suite.AcademicYears{Base: known, Known: HEIIDParam, Items: iiaIDs}.Cases()...)
	cases = append(cases,
		suite.Case{
			Name:   "Request with known hei_id equal to partner_hei_id, expect 400.",
			Params: known.With(transport.P(PartnerHEIIDParam, hei)),
			Expect: badRequest,
		},
		suite.Case{
			Name:   "Request with known hei_id and unknown partner_hei_id, expect 200 OK and empty list.",
			Params: known.With(transport.P(PartnerHEIIDParam, suite.FakeID)),
			Expect: suite.OK(iiaIDs.BeEmpty()),
		},
	)
	cases = append(cases, suite.ModifiedSince{
		Supported:      true,
		Base:           known,
		Known:          HEIIDParam,
		Items:          iiaIDs,
		Now:            st.Started(),
		Repeated:       []string{"2004-02-12T15:19:21+01:00", "2004-02-13T15:19:21+01:00"},
		NonEmpty:       iiasNonEmpty,
		NonEmptyReason: iiasEmpty,
	}.Cases()...)
	cases = append(cases, suite.UnknownParameter(suite.IgnoreUnknown, known, "hei_id_param", hei, iiaIDs.BeCorrect())...)

	noPartner := "partner_hei_id not provided and not found through the 'get' endpoint."
	withPartner := known.With(transport.P(PartnerHEIIDParam, partner))
	cases = append(cases,
		suite.Case{
			Name:           "Request known hei_id and known partner_hei_id, expect 200 OK and non-empty response.",
			Params:         withPartner,
			Expect:         suite.OK(iiaIDs.NotBeEmpty()),
			Skip:           partner == "",
			SkipReason:     noPartner,
			Requires:       iiasNonEmpty,
			RequiresReason: iiasEmpty,
		},
		suite.Case{
			Name:       "Request with known hei_id, partner_hei_id and receiving_academic_year_id, expect 200 OK and non-empty response.",
			Params:     withPartner.With(transport.P(suite.AcademicYearParam, year)),
			Expect:     suite.OK(iiaIDs.NotBeEmpty()),
			Skip:       partner == "" || year == "",
			SkipReason: "No known receiving_academic_year_id, try to pass additional parameters.",
		},
	)
	return cases
}

func appendDistinct(list []string, values ...string) []string {
	for _, v := range values {
		if !contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// IIAsGet validates the get endpoint of the IIAs API, version 6 and later.
// The iia_id is taken from the index endpoint of the same institution.
func IIAsGet() suite.API {
	return suite.API{
		Name:     iiasAPI,
		Endpoint: "get",
		MinMajor: 6,
		Parameters: []fixture.Parameter{
			{
				Name:        HEIIDParam,
				Description: "Institution covered by the host.",
				Strategy:    fixture.CoveredHEIs(),
				Missing:     "Catalogue doesn't contain any hei-ids covered by this url. We cannot preform tests.",
			},
			{
				Name:        IIAIDParam,
				DependsOn:   []string{HEIIDParam},
				Description: "Agreement of hei_id. Found through the 'index' endpoint when not given.",
				Strategy: fixture.FromAPI(iiasAPI, "index", HEIIDParam,
					func(hei string, _ *fixture.Values) transport.Params {
						return transport.Params{transport.P(HEIIDParam, hei)}
					}, "iia-id"),
				Step:    "Find iia-id to work with.",
				Missing: "We tried to find iia-id to perform tests on, but index endpoint doesn't report any iia-id, cannot continue tests.",
			},
		},
		Limits:           []string{maxIIAIDs, maxIIACodes},
		AnonymousAllowed: false,
		Unknown:          suite.IgnoreUnknown,
		ResponseRoot:     "iias-get-response",
		Battery:          iiasGetBattery,
	}
}

func iiasGetBattery(st *suite.State) []suite.Case {
	hei := st.Value(HEIIDParam)
	iia := st.Value(IIAIDParam)
	var code string

	return []suite.Case{{
		Name: "Request for one of known iia_ids, expect 200 OK.",
		Params: transport.Params{
			transport.P(HEIIDParam, hei),
			transport.P(IIAIDParam, iia),
		},
		Expect:   suite.OK(iiaPartnerIDs.ContainExactly(iia)),
		Critical: true,
		Capture: func(doc verifier.Document) error {
			found, err := codeOf(doc, iia, iiaPartnerIDs.Path, iiaPartnerCodes)
			code = found
			return err
		},
		Then: func() []suite.Case {
			return suite.IDsAndCodes{
				HEIParam:        HEIIDParam,
				HEIID:           hei,
				Prefix:          "iia",
				ID:              iia,
				MaxIDs:          st.Limit(maxIIAIDs),
				Code:            code,
				MaxCodes:        st.Limit(maxIIACodes),
				UnknownHEIFails: true,
				// iia_code lookups were dropped in version 7.
				SkipCodes: st.Version().Major >= 7,
				Unknown:   suite.IgnoreUnknown,
				Items:     iiaPartnerIDs,
			}.Cases()
		},
	}}
}
