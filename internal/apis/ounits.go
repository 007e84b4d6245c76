package apis

import (
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

const (
	OUnitIDParam   = "ounit_id"
	OUnitCodeParam = "ounit_code"

	maxOUnitIDs   = "max-ounit-ids"
	maxOUnitCodes = "max-ounit-codes"
)

var (
	ounitIDs   = verifier.NewFactory("ounit", "ounit-id")
	ounitCodes = []string{"ounit", "ounit-code"}
)

// OrganizationalUnits validates the Organizational Units API, version 2 and
// later. Unit ids are discovered through the Institutions API of the covered
// institutions; the unit code is read from the first response.
func OrganizationalUnits() suite.API {
	return suite.API{
		Name:     "organizational-units",
		MinMajor: 2,
		Parameters: []fixture.Parameter{
			{
				Name:        HEIIDParam,
				Description: "Institution covered by the host.",
				Strategy:    fixture.CoveredHEIs(),
				Step:        "Get hei-ids covered by host managing this url.",
				Missing:     "Catalogue doesn't contain any hei-ids covered by this url. We cannot preform tests.",
			},
			{
				Name:        OUnitIDParam,
				DependsOn:   []string{HEIIDParam},
				Description: "Unit of hei_id. Found through the Institutions API when not given.",
				Strategy: fixture.FromAPI("institutions", "", HEIIDParam,
					func(hei string, _ *fixture.Values) transport.Params {
						return transport.Params{transport.P(HEIIDParam, hei)}
					}, "hei", "ounit-id"),
				Step:    "Use institutions API to obtain list of OUnits for one of covered HEI IDs.",
				Missing: "Cannot fetch any ounits.",
			},
			{
				Name:        OUnitCodeParam,
				DependsOn:   []string{OUnitIDParam},
				Description: "Code of ounit_id. Read from the response to the first request when not given.",
				Optional:    true,
			},
		},
		Limits:           []string{maxOUnitIDs, maxOUnitCodes},
		AnonymousAllowed: true,
		Unknown:          suite.RejectUnknown,
		ResponseRoot:     "ounits-response",
		Battery:          ounitsBattery,
	}
}

func ounitsBattery(st *suite.State) []suite.Case {
	hei := st.Value(HEIIDParam)
	ounit := st.Value(OUnitIDParam)
	code := st.Value(OUnitCodeParam)

	return []suite.Case{{
		Name: "Request for one of known ounit-ids, expect 200 OK.",
		Params: transport.Params{
			transport.P(HEIIDParam, hei),
			transport.P(OUnitIDParam, ounit),
		},
		Expect:   suite.OK(ounitIDs.ContainExactly(ounit)),
		Critical: true,
		Capture: func(doc verifier.Document) error {
			if code != "" {
				return nil
			}
			found, err := codeOf(doc, ounit, ounitIDs.Path, ounitCodes)
			code = found
			return err
		},
		Then: func() []suite.Case {
			return suite.IDsAndCodes{
				HEIParam:        HEIIDParam,
				HEIID:           hei,
				Prefix:          "ounit",
				ID:              ounit,
				MaxIDs:          st.Limit(maxOUnitIDs),
				Code:            code,
				MaxCodes:        st.Limit(maxOUnitCodes),
				UnknownHEIFails: true,
				Unknown:         suite.RejectUnknown,
				// A second hei_id is commonly ignored; only warn.
				IncorrectHEISeverity: report.StatusWarning,
				Items:                ounitIDs,
			}.Cases()
		},
	}}
}

// codeOf returns the code paired with id, reading ids at idPath and codes
// at codePath. The pairing is by position, so it only holds when both
// selections have the same length; otherwise no code is found.
func codeOf(doc verifier.Document, id string, idPath, codePath []string) (string, error) {
	ids, err := doc.Select(idPath...)
	if err != nil {
		return "", err
	}
	codes, err := doc.Select(codePath...)
	if err != nil {
		return "", err
	}
	if len(ids) != len(codes) {
		return "", nil
	}
	for i, v := range ids {
		if v == id {
			return codes[i], nil
		}
	}
	return "", nil
}
