package apis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

func names(cases []suite.Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.Name
	}
	return out
}

func xmlDoc(t *testing.T, body string) verifier.Document {
	t.Helper()
	doc, err := verifier.ParseXML([]byte(body))
	require.NoError(t, err)
	return doc
}

func TestRegistry(t *testing.T) {
	reg := Registry()
	tests := []struct {
		api      string
		endpoint string
		version  string
		err      error
	}{
		{api: "institutions", version: "2.1.0"},
		{api: "institutions", version: "1.0.0", err: suite.ErrUnsupportedVersion},
		{api: "organizational-units", version: "2.1.0"},
		{api: "iias", endpoint: "index", version: "6.0.0"},
		{api: "iias", endpoint: "index", version: "5.0.0", err: suite.ErrUnsupportedVersion},
		{api: "iias", endpoint: "get", version: "7.0.0"},
		{api: "iias", endpoint: "get", version: "5.0.0", err: suite.ErrUnsupportedVersion},
		{api: "iias", version: "6.0.0", err: suite.ErrUnknownAPI},
	}
	for _, tt := range tests {
		t.Run(tt.api+"/"+tt.endpoint+"@"+tt.version, func(t *testing.T) {
			_, err := reg.Find(tt.api, tt.endpoint, semver.MustParse(tt.version))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
		})
	}

	// Every parameter table must be a valid plan.
	for _, api := range All() {
		_, err := fixture.NewPlan(api.Parameters, nil)
		assert.NoError(t, err, api.Key())
	}
}

func TestInstitutionsBattery(t *testing.T) {
	st := suite.NewState("https://example.org/inst", "institutions", "", semver.New(2, 1, 0))
	st.Discover(HEIIDParam, "uw.edu.pl")
	st.SetLimit(maxHEIIDs, 1)
	st.Freeze()

	cases := institutionsBattery(st)
	assert.Equal(t, []string{
		"Check if this host covers any institution.",
		"Request for one of known HEI IDs, expect 200 OK.",
		"Request one unknown HEI ID, expect 200 and empty response.",
		"Request without HEI IDs, expect 400.",
		"Request more than <max-hei-ids> known HEIs, expect 400.",
		"Request more than <max-hei-ids> unknown HEI IDs, expect 400.",
		"Request exactly <max-hei-ids> known HEI IDs, expect 200 and <max-hei-ids> HEI IDs in response.",
		"Request with single incorrect parameter, expect 400.",
		"Request with additional parameter, expect 200.",
	}, names(cases))
	assert.True(t, cases[0].Critical)
	assert.NoError(t, cases[0].Check(context.Background(), st))
	assert.Len(t, cases[4].Params, 2)

	empty := suite.NewState("https://example.org/inst", "institutions", "", semver.New(2, 1, 0))
	empty.Freeze()
	err := institutionsBattery(empty)[0].Check(context.Background(), empty)
	var f *engine.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, report.StatusFailure, f.Status)
}

func TestInstitutionsVerifier(t *testing.T) {
	const ns = `xmlns="https://github.com/erasmus-without-paper/ewp-specs-api-institutions/tree/stable-v2"`
	tests := []struct {
		name     string
		body     string
		expected []string
		message  string
	}{
		{
			name:     "match",
			body:     `<institutions-response ` + ns + `><hei><hei-id>a</hei-id><root-ounit-id>1</root-ounit-id><ounit-id>1</ounit-id></hei></institutions-response>`,
			expected: []string{"a"},
		},
		{
			name:    "unexpected",
			body:    `<institutions-response ` + ns + `><hei><hei-id>b</hei-id></hei></institutions-response>`,
			message: "It contains <hei-id>b</hei-id>, but it shouldn't.",
		},
		{
			name:     "missing",
			body:     `<institutions-response ` + ns + `/>`,
			expected: []string{"a"},
			message:  "It should contain the following: [a]",
		},
		{
			name:     "dangling root unit",
			body:     `<institutions-response ` + ns + `><hei><hei-id>a</hei-id><root-ounit-id>2</root-ounit-id><ounit-id>1</ounit-id></hei></institutions-response>`,
			expected: []string{"a"},
			message:  "root-ounit-id is not included in ounit-id list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := institutionsVerifier(tt.expected...).Verify(xmlDoc(t, tt.body))
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			var res *verifier.Result
			require.True(t, errors.As(err, &res))
			assert.Contains(t, res.Message, tt.message)
		})
	}
}

func TestOUnitsBattery(t *testing.T) {
	st := suite.NewState("https://example.org/ounits", "organizational-units", "", semver.New(2, 1, 0))
	st.Discover(HEIIDParam, "uw.edu.pl")
	st.Discover(OUnitIDParam, "ou-1")
	st.Freeze()

	cases := ounitsBattery(st)
	require.Len(t, cases, 1)
	first := cases[0]
	assert.True(t, first.Critical)

	doc := xmlDoc(t, `<ounits-response><ounit><ounit-id>ou-0</ounit-id><ounit-code>C0</ounit-code></ounit>`+
		`<ounit><ounit-id>ou-1</ounit-id><ounit-code>C1</ounit-code></ounit></ounits-response>`)
	require.NoError(t, first.Capture(doc))

	follow := first.Then()
	require.NotEmpty(t, follow)
	assert.Equal(t, "Request for one of known ounit_codes, expect 200 OK.", follow[0].Name)
	assert.False(t, follow[0].Skip)
	assert.Contains(t, follow[0].Params, transport.P(OUnitCodeParam, "C1"))
	assert.Equal(t, "Request for one of known ounit_ids with unknown hei_id, expect 400.", follow[7].Name)
}

func TestCodeOf(t *testing.T) {
	ounits := xmlDoc(t, `<ounits-response><ounit><ounit-id>a</ounit-id><ounit-code>A</ounit-code></ounit></ounits-response>`)
	iias := xmlDoc(t, `<iias-get-response><iia>`+
		`<partner><iia-id>i-1</iia-id><iia-code>I/1</iia-code></partner>`+
		`<partner><iia-id>p-1</iia-id><iia-code>P/1</iia-code></partner>`+
		`</iia></iias-get-response>`)
	uneven := xmlDoc(t, `<ounits-response><ounit><ounit-id>a</ounit-id></ounit>`+
		`<ounit><ounit-id>b</ounit-id><ounit-code>B</ounit-code></ounit></ounits-response>`)

	tests := []struct {
		name     string
		doc      verifier.Document
		id       string
		idPath   []string
		codePath []string
		want     string
	}{
		{name: "ounit found", doc: ounits, id: "a", idPath: ounitIDs.Path, codePath: ounitCodes, want: "A"},
		{name: "ounit unknown", doc: ounits, id: "b", idPath: ounitIDs.Path, codePath: ounitCodes},
		{name: "own iia", doc: iias, id: "i-1", idPath: iiaPartnerIDs.Path, codePath: iiaPartnerCodes, want: "I/1"},
		{name: "partner iia is not ours", doc: iias, id: "p-1", idPath: iiaPartnerIDs.Path, codePath: iiaPartnerCodes},
		{name: "uneven selections", doc: uneven, id: "b", idPath: ounitIDs.Path, codePath: ounitCodes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := codeOf(tt.doc, tt.id, tt.idPath, tt.codePath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

type stubLookup struct {
	catalogue.Lookup
	urls []string
}

func (s stubLookup) APIURLs(string, string, string) []string { return s.urls }

type stubProbe struct {
	doc    verifier.Document
	err    error
	params transport.Params
}

func (p *stubProbe) Fetch(_ context.Context, _ string, params transport.Params) (verifier.Document, error) {
	p.params = params
	return p.doc, p.err
}

func TestIIAsSetup(t *testing.T) {
	const iia = `<iias-get-response><iia>` +
		`<partner><hei-id>uw.edu.pl</hei-id></partner><partner><hei-id>uni-foo.example</hei-id></partner>` +
		`<cooperation-conditions>` +
		`<student-studies-mobility-spec><receiving-academic-year-id>2020/2021</receiving-academic-year-id></student-studies-mobility-spec>` +
		`<staff-teacher-mobility-spec><receiving-academic-year-id>2021/2022</receiving-academic-year-id></staff-teacher-mobility-spec>` +
		`</cooperation-conditions></iia></iias-get-response>`

	tests := []struct {
		name    string
		urls    []string
		probe   *stubProbe
		status  report.Status
		partner string
		year    string
	}{
		{
			name:    "partner and years found",
			urls:    []string{"https://example.org/iias/get"},
			probe:   &stubProbe{doc: xmlDoc(t, iia)},
			status:  report.StatusSuccess,
			partner: "uni-foo.example",
			year:    "2020/2021",
		},
		{
			name:   "no get endpoint",
			probe:  &stubProbe{},
			status: report.StatusNotice,
		},
		{
			name:   "get failed",
			urls:   []string{"https://example.org/iias/get"},
			probe:  &stubProbe{err: errors.New("refused")},
			status: report.StatusNotice,
		},
		{
			name:   "get timed out",
			urls:   []string{"https://example.org/iias/get"},
			probe:  &stubProbe{err: &transport.TimeoutError{}},
			status: report.StatusError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := suite.NewState("https://example.org/iias/index", iiasAPI, "index", semver.New(6, 0, 0))
			st.Discover(HEIIDParam, "uw.edu.pl")
			st.Discover(IIAIDParam, "iia-1")

			steps := iiasSetup(suite.SetupEnv{State: st, Probe: tt.probe, Catalogue: stubLookup{urls: tt.urls}})
			require.Len(t, steps, 1)

			rec := report.NewRecorder(iiasAPI, "index", "6.0.0", st.URL(), st.Started())
			status, err := engine.NewRunner(rec, engine.WithLogger(engine.NewSilentLogger())).Do(context.Background(), steps[0])
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.partner, st.Value(PartnerHEIIDParam))
			assert.Equal(t, tt.year, st.Value(suite.AcademicYearParam))
		})
	}

	t.Run("partner given", func(t *testing.T) {
		st := suite.NewState("https://example.org/iias/index", iiasAPI, "index", semver.New(6, 0, 0))
		st.Discover(IIAIDParam, "iia-1")
		st.Discover(PartnerHEIIDParam, "uni-foo.example")
		assert.Empty(t, iiasSetup(suite.SetupEnv{State: st}))
	})
}

func TestIIAsIndexBattery(t *testing.T) {
	st := suite.NewState("https://example.org/iias/index", iiasAPI, "index", semver.New(6, 0, 0))
	st.Discover(HEIIDParam, "uw.edu.pl")
	st.Freeze()

	cases := iiasIndexBattery(st)
	byName := map[string]suite.Case{}
	for _, c := range cases {
		byName[c.Name] = c
	}
	partner := byName["Request known hei_id and known partner_hei_id, expect 200 OK and non-empty response."]
	assert.True(t, partner.Skip)
	assert.Equal(t, "partner_hei_id not provided and not found through the 'get' endpoint.", partner.SkipReason)

	multiple := byName["Request with multiple modified_since parameters, expect 400."]
	assert.Equal(t, transport.Params{
		transport.P(HEIIDParam, "uw.edu.pl"),
		transport.P(suite.ModifiedSinceParam, "2004-02-12T15:19:21+01:00"),
		transport.P(suite.ModifiedSinceParam, "2004-02-13T15:19:21+01:00"),
	}, multiple.Params)
	assert.Contains(t, names(cases), "Request with additional parameter, expect 200.")

	require.Contains(t, byName, iiasNonEmpty)
	farPast := byName["Request with known hei_id and modified_since far in the past, expect 200 OK and non-empty response."]
	assert.Equal(t, iiasNonEmpty, farPast.Requires)
	assert.Equal(t, iiasEmpty, farPast.RequiresReason)
	assert.Equal(t, iiasNonEmpty, partner.Requires)
}

func TestIIAsGetBattery(t *testing.T) {
	const body = `<iias-get-response><iia>` +
		`<partner><hei-id>uw.edu.pl</hei-id><iia-id>iia-1</iia-id><iia-code>IIA/1</iia-code></partner>` +
		`<partner><hei-id>uni-foo.example</hei-id><iia-id>p-7</iia-id><iia-code>P/7</iia-code></partner>` +
		`</iia></iias-get-response>`

	tests := []struct {
		name      string
		version   semver.Version
		wantCodes bool
	}{
		{name: "v6 tests codes", version: semver.New(6, 0, 0), wantCodes: true},
		{name: "v7 has no codes", version: semver.New(7, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := suite.NewState("https://example.org/iias/get", iiasAPI, "get", tt.version)
			st.Discover(HEIIDParam, "uw.edu.pl")
			st.Discover(IIAIDParam, "iia-1")
			st.SetLimit(maxIIAIDs, 2)
			st.Freeze()

			cases := iiasGetBattery(st)
			require.Len(t, cases, 1)
			first := cases[0]
			assert.True(t, first.Critical)
			doc := xmlDoc(t, body)
			require.NoError(t, first.Expect.Verifier().Verify(doc))
			require.NoError(t, first.Capture(doc))

			byName := map[string]suite.Case{}
			for _, c := range first.Then() {
				byName[c.Name] = c
			}
			unknown := byName["Request one unknown iia_id, expect 200 and empty response."]
			assert.Equal(t, transport.Params{transport.P(HEIIDParam, "uw.edu.pl"), transport.P(IIAIDParam, suite.FakeID)}, unknown.Params)

			tooMany := byName["Request more than <max-iia-ids> known iia_ids, expect 400."]
			assert.Len(t, tooMany.Params, 4)

			mismatch := byName["Request for one of known iia_ids with unknown hei_id, expect 400."]
			assert.True(t, mismatch.Expect.IsError())
			assert.Contains(t, byName, "Request with correct hei_id and incorrect hei_id, expect 400.")

			byCode := byName["Request for one of known iia_codes, expect 200 OK."]
			if tt.wantCodes {
				assert.False(t, byCode.Skip)
				assert.Contains(t, byCode.Params, transport.P("iia_code", "IIA/1"))
			} else {
				assert.True(t, byCode.Skip)
				assert.Equal(t, "iia_codes are not supported by this API.", byCode.SkipReason)
			}
		})
	}
}
