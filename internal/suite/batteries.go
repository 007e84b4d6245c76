package suite

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

// IDsAndCodes describes an API that looks items up by id or by code within
// one institution, such as organizational units.
type IDsAndCodes struct {
	// HEIParam and HEIID identify the institution, e.g. hei_id.
	HEIParam string
	HEIID    string
	// Prefix names the item. Parameters are Prefix_id and Prefix_code.
	Prefix   string
	ID       string
	MaxIDs   int
	Code     string
	MaxCodes int
	// UnknownHEIFails selects 400 instead of an empty 200 response for
	// requests naming an unknown institution.
	UnknownHEIFails bool
	// SkipCodes disables every code based case.
	SkipCodes bool
	Unknown   UnknownPolicy
	// IncorrectHEISeverity caps the status of the request naming a known
	// and an unknown institution. Zero means FAILURE.
	IncorrectHEISeverity report.Status
	// Items selects the ids of the returned items.
	Items verifier.Factory
}

func (b IDsAndCodes) idParam() string   { return b.Prefix + "_id" }
func (b IDsAndCodes) codeParam() string { return b.Prefix + "_code" }

func (b IDsAndCodes) hei() transport.Param { return transport.P(b.HEIParam, b.HEIID) }

func (b IDsAndCodes) byID(ids ...string) transport.Params {
	ps := transport.Params{b.hei()}
	for _, id := range ids {
		ps = append(ps, transport.P(b.idParam(), id))
	}
	return ps
}

func (b IDsAndCodes) byCode(codes ...string) transport.Params {
	ps := transport.Params{b.hei()}
	for _, c := range codes {
		ps = append(ps, transport.P(b.codeParam(), c))
	}
	return ps
}

func repeat(n int, v string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Cases returns the battery in its fixed order.
func (b IDsAndCodes) Cases() []Case {
	p, hei := b.Prefix, b.HEIParam
	maxIDs, maxCodes := b.MaxIDs, b.MaxCodes
	if maxIDs < 1 {
		maxIDs = 1
	}
	if maxCodes < 1 {
		maxCodes = 1
	}

	noCode := b.SkipCodes || b.Code == ""
	noCodeReason := p + "_code not found."
	if b.SkipCodes {
		noCodeReason = p + "_codes are not supported by this API."
	}
	codeCase := func(c Case) Case {
		if noCode {
			c.Skip, c.SkipReason = true, noCodeReason
		}
		return c
	}

	badRequest := Error(http.StatusBadRequest)
	incorrectHEI := badRequest
	if b.IncorrectHEISeverity != report.StatusPending {
		incorrectHEI = badRequest.WithSeverity(b.IncorrectHEISeverity)
	}
	var cases []Case

	cases = append(cases,
		codeCase(Case{
			Name:   fmt.Sprintf("Request for one of known %s_codes, expect 200 OK.", p),
			Params: b.byCode(b.Code),
			Expect: OK(b.Items.ContainExactly(b.ID)),
		}),
		Case{
			Name:   fmt.Sprintf("Request one unknown %s_id, expect 200 and empty response.", p),
			Params: b.byID(FakeID),
			Expect: OK(b.Items.BeEmpty()),
		},
		Case{
			Name:       fmt.Sprintf("Request one known and one unknown %s_id, expect 200 and only one %s in response.", p, p),
			Params:     b.byID(b.ID, FakeID),
			Expect:     OK(b.Items.ContainExactly(b.ID)),
			Skip:       maxIDs == 1,
			SkipReason: "max-ids is equal to 1.",
		},
	)

	knownAndUnknownCode := codeCase(Case{
		Name:   fmt.Sprintf("Request one known and one unknown %s_code, expect 200 and only one %s in response.", p, p),
		Params: b.byCode(b.Code, FakeID),
		Expect: OK(b.Items.ContainExactly(b.ID)),
	})
	if noCode || maxCodes == 1 {
		knownAndUnknownCode.Skip = true
		knownAndUnknownCode.SkipReason = fmt.Sprintf("max-codes equal to 1 or %s_code not found.", p)
	}
	cases = append(cases, knownAndUnknownCode)

	withoutIDs := fmt.Sprintf("Request without %s_ids and %s_codes, expect 400.", p, p)
	if b.SkipCodes {
		withoutIDs = fmt.Sprintf("Request without %s_ids, expect 400.", p)
	}
	cases = append(cases,
		Case{
			Name:   fmt.Sprintf("Request without %s and %s_ids, expect 400.", hei, p),
			Expect: badRequest,
		},
		Case{
			Name:   fmt.Sprintf("Request without %s, expect 400.", hei),
			Params: transport.Params{transport.P(b.idParam(), b.ID)},
			Expect: badRequest,
		},
		Case{
			Name:   withoutIDs,
			Params: transport.Params{b.hei()},
			Expect: badRequest,
		},
	)

	unknownHEI := transport.P(hei, FakeID)
	if b.UnknownHEIFails {
		cases = append(cases,
			Case{
				Name:   fmt.Sprintf("Request for one of known %s_ids with unknown %s, expect 400.", p, hei),
				Params: transport.Params{unknownHEI, transport.P(b.idParam(), b.ID)},
				Expect: badRequest,
			},
			codeCase(Case{
				Name:   fmt.Sprintf("Request for one of known %s_codes with unknown %s, expect 400.", p, hei),
				Params: transport.Params{unknownHEI, transport.P(b.codeParam(), b.Code)},
				Expect: badRequest,
			}),
		)
	} else {
		cases = append(cases,
			Case{
				Name:   fmt.Sprintf("Request for one of known %s_ids with unknown %s, expect 200 and empty response.", p, hei),
				Params: transport.Params{unknownHEI, transport.P(b.idParam(), b.ID)},
				Expect: OK(b.Items.BeEmpty()),
			},
			codeCase(Case{
				Name:   fmt.Sprintf("Request for one of known %s_codes with unknown %s, expect 200 and empty response.", p, hei),
				Params: transport.Params{unknownHEI, transport.P(b.codeParam(), b.Code)},
				Expect: OK(b.Items.BeEmpty()),
			}),
		)
	}

	maxIDsName := "<max-" + p + "-ids>"
	maxCodesName := "<max-" + p + "-codes>"
	cases = append(cases,
		Case{
			Name:   fmt.Sprintf("Request more than %s known %s_ids, expect 400.", maxIDsName, p),
			Params: b.byID(repeat(maxIDs+1, b.ID)...),
			Expect: badRequest,
		},
		codeCase(Case{
			Name:   fmt.Sprintf("Request more than %s known %s_codes, expect 400.", maxCodesName, p),
			Params: b.byCode(repeat(maxCodes+1, b.Code)...),
			Expect: badRequest,
		}),
		Case{
			Name:   fmt.Sprintf("Request more than %s unknown %s_ids, expect 400.", maxIDsName, p),
			Params: b.byID(repeat(maxIDs+1, FakeID)...),
			Expect: badRequest,
		},
		codeCase(Case{
			Name:   fmt.Sprintf("Request more than %s unknown %s_codes, expect 400.", maxCodesName, p),
			Params: b.byCode(repeat(maxCodes+1, FakeID)...),
			Expect: badRequest,
		}),
		Case{
			Name:   fmt.Sprintf("Request exactly %s known %s_ids, expect 200 and non-empty response.", maxIDsName, p),
			Params: b.byID(repeat(maxIDs, b.ID)...),
			Expect: OK(b.Items.Contain(b.ID)),
		},
		codeCase(Case{
			Name:   fmt.Sprintf("Request exactly %s known %s_codes, expect 200 and non-empty response.", maxCodesName, p),
			Params: b.byCode(repeat(maxCodes, b.Code)...),
			Expect: OK(b.Items.Contain(b.ID)),
		}),
	)
	cases = append(cases, UnknownParameter(b.Unknown, b.byID(b.ID), b.idParam()+"_param", b.ID, b.Items.ContainExactly(b.ID))...)
	cases = append(cases,
		codeCase(Case{
			Name:   fmt.Sprintf("Request with correct %s_id and correct %s_code, expect 400.", p, p),
			Params: b.byID(b.ID).With(transport.P(b.codeParam(), b.Code)),
			Expect: badRequest,
		}),
		Case{
			Name:   fmt.Sprintf("Request with correct %s twice, expect 400.", hei),
			Params: transport.Params{b.hei(), b.hei(), transport.P(b.idParam(), b.ID)},
			Expect: badRequest,
		},
		Case{
			Name:   fmt.Sprintf("Request with correct %s and incorrect %s, expect 400.", hei, hei),
			Params: transport.Params{b.hei(), unknownHEI, transport.P(b.idParam(), b.ID)},
			Expect: incorrectHEI,
		},
	)
	return cases
}

// ModifiedSinceParam is the name of the incremental-sync parameter.
const ModifiedSinceParam = "modified_since"

const modifiedSinceUnsupported = "modified_since parameter not supported."

// ModifiedSince describes the modified_since checks of an index endpoint.
type ModifiedSince struct {
	Supported bool
	// Base is a request naming a known item owner, e.g. a known hei_id.
	Base transport.Params
	// Known names what Base carries in case names, e.g. "hei_id".
	Known string
	Items verifier.Factory
	// Now anchors the date in the future.
	Now time.Time
	// Repeated are the values of the multiple modified_since request. Two
	// copies of one date are used when empty.
	Repeated []string
	// NonEmpty names an earlier case that found items for Base. Without it
	// passing, the far-in-the-past case is skipped with NonEmptyReason.
	NonEmpty       string
	NonEmptyReason string
}

// Cases returns the modified_since battery.
func (b ModifiedSince) Cases() []Case {
	now := b.Now
	if now.IsZero() {
		now = time.Now()
	}
	future := strconv.Itoa(now.Year()+20) + "-02-12T15:19:21+01:00"
	with := func(values ...string) transport.Params {
		ps := b.Base.With()
		for _, v := range values {
			ps = append(ps, transport.P(ModifiedSinceParam, v))
		}
		return ps
	}
	badRequest := Error(http.StatusBadRequest)
	repeated := b.Repeated
	if len(repeated) == 0 {
		repeated = []string{"2019-02-12T15:19:21+01:00", "2019-02-12T15:19:21+01:00"}
	}

	cases := []Case{
		{
			Name:   "Request with multiple modified_since parameters, expect 400.",
			Params: with(repeated...),
			Expect: badRequest,
		},
		{
			Name:   fmt.Sprintf("Request with known %s and modified_since in the future, expect 200 OK and empty response", b.Known),
			Params: with(future),
			Expect: OK(b.Items.BeEmpty().WithSeverity(report.StatusWarning)),
		},
		{
			Name:           fmt.Sprintf("Request with known %s and modified_since far in the past, expect 200 OK and non-empty response.", b.Known),
			Params:         with("2000-02-12T15:19:21+01:00"),
			Expect:         OK(b.Items.NotBeEmpty()),
			Requires:       b.NonEmpty,
			RequiresReason: b.NonEmptyReason,
		},
		{
			Name:   fmt.Sprintf("Request with known %s and correct date, expect 200.", b.Known),
			Params: with("2004-02-12T15:19:21+01:00"),
			Expect: OK(b.Items.BeCorrect()),
		},
		{
			Name:   "Request with invalid value of modified_since, expect 400.",
			Params: with(FakeID),
			Expect: badRequest,
		},
		{
			Name:   "Request with modified_since being only a date, expect 400.",
			Params: with("2004-02-12"),
			Expect: badRequest,
		},
		{
			Name:   "Request with modified_since being a dateTime in wrong format, expect 400.",
			Params: with("05/29/2015 05:50"),
			Expect: badRequest,
		},
	}
	if !b.Supported {
		for i := range cases {
			cases[i].Skip = true
			cases[i].SkipReason = modifiedSinceUnsupported
		}
	}
	return cases
}

// AcademicYearParam filters items by the receiving academic year.
const AcademicYearParam = "receiving_academic_year_id"

// AcademicYears describes the receiving_academic_year_id checks.
type AcademicYears struct {
	Base  transport.Params
	Known string
	Items verifier.Factory
}

// Cases returns the academic year battery.
func (b AcademicYears) Cases() []Case {
	year := func(v string) transport.Params {
		return b.Base.With(transport.P(AcademicYearParam, v))
	}
	return []Case{
		{
			Name:   fmt.Sprintf("Request with known %s and receiving_academic_year_id in northern hemisphere format, expect 200 OK.", b.Known),
			Params: year("2010/2011"),
			Expect: OK(b.Items.BeCorrect()),
		},
		{
			Name:   "Request with receiving_academic_year_id in incorrect format, expect 400.",
			Params: year("test/test"),
			Expect: Error(http.StatusBadRequest),
		},
		{
			Name:   fmt.Sprintf("Request with known %s and unknown receiving_academic_year_id parameter, expect 200 OK and empty response.", b.Known),
			Params: year("1653/1654"),
			Expect: OK(b.Items.BeEmpty()),
		},
	}
}
