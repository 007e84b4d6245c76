package fixture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/dependency"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

type fakeCatalogue struct {
	covered []string
	urls    map[string][]string
}

func (f fakeCatalogue) CoveredHEIs(string) []string { return f.covered }
func (f fakeCatalogue) APIURLs(hei, _, _ string) []string {
	return f.urls[hei]
}
func (fakeCatalogue) FindEntries(_, _, _, _ string) []catalogue.Entry { return nil }
func (fakeCatalogue) EntryByURL(string) (catalogue.Entry, bool)       { return catalogue.Entry{}, false }
func (fakeCatalogue) ServerKey(string) (catalogue.ServerKey, bool)    { return catalogue.ServerKey{}, false }

type fakeProbe struct {
	bodies map[string]string
	calls  []string
}

func (p *fakeProbe) Fetch(_ context.Context, url string, params transport.Params) (verifier.Document, error) {
	p.calls = append(p.calls, params.AppendToURL(url))
	body, ok := p.bodies[url]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return verifier.ParseXML([]byte(body))
}

func names(ps []Parameter) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestPlanOrder(t *testing.T) {
	params := []Parameter{
		{Name: "ounit_id", DependsOn: []string{"hei_id"}},
		{Name: "hei_id"},
		{Name: "ounit_code", DependsOn: []string{"hei_id"}, BlockedBy: []string{"ounit_id"}},
	}

	t.Run("discovered", func(t *testing.T) {
		plan, err := NewPlan(params, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"hei_id", "ounit_id", "ounit_code"}, names(plan.Order))
	})

	t.Run("both overridden keeps dependency order", func(t *testing.T) {
		plan, err := NewPlan(params, map[string]string{"ounit_id": "o1", "hei_id": "h1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"hei_id", "ounit_id", "ounit_code"}, names(plan.Order))

		vals := NewValues()
		for _, p := range plan.Order[:2] {
			require.NoError(t, plan.ResolveOne(context.Background(), p, Env{}, vals))
		}
		assert.Equal(t, []string{"hei_id", "ounit_id"}, vals.Names())
		assert.True(t, vals.UserProvided("ounit_id"))
	})
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name      string
		params    []Parameter
		overrides map[string]string
		check     func(t *testing.T, err error)
	}{
		{
			name:   "cycle",
			params: []Parameter{{Name: "a", DependsOn: []string{"b"}}, {Name: "b", DependsOn: []string{"a"}}},
			check: func(t *testing.T, err error) {
				var ce *dependency.CycleError
				assert.ErrorAs(t, err, &ce)
			},
		},
		{
			name:   "undeclared dependency",
			params: []Parameter{{Name: "a", DependsOn: []string{"zzz"}}},
			check: func(t *testing.T, err error) {
				var de *DefinitionError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name:   "duplicate",
			params: []Parameter{{Name: "a"}, {Name: "a"}},
			check: func(t *testing.T, err error) {
				var de *DefinitionError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name:      "unknown override",
			params:    []Parameter{{Name: "a"}},
			overrides: map[string]string{"nope": "1"},
			check: func(t *testing.T, err error) {
				var oe *OverrideError
				require.ErrorAs(t, err, &oe)
				assert.Equal(t, "nope", oe.Parameter)
			},
		},
		{
			name:      "override without its dependency",
			params:    []Parameter{{Name: "hei_id"}, {Name: "ounit_id", DependsOn: []string{"hei_id"}}},
			overrides: map[string]string{"ounit_id": "1"},
			check: func(t *testing.T, err error) {
				var oe *OverrideError
				require.ErrorAs(t, err, &oe)
				assert.Contains(t, oe.Error(), "requires 'hei_id'")
			},
		},
		{
			name:      "blocked override",
			params:    []Parameter{{Name: "ounit_id"}, {Name: "ounit_code", BlockedBy: []string{"ounit_id"}}},
			overrides: map[string]string{"ounit_id": "1", "ounit_code": "c"},
			check: func(t *testing.T, err error) {
				var oe *OverrideError
				require.ErrorAs(t, err, &oe)
				assert.Contains(t, oe.Error(), "cannot be provided together with 'ounit_id'")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.params, tt.overrides)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestResolveDiscoversAndNarrows(t *testing.T) {
	probe := &fakeProbe{bodies: map[string]string{
		"https://b.example.org/inst": `<institutions-response><hei><hei-id>b</hei-id><ounit-id>ou-b</ounit-id></hei></institutions-response>`,
		"https://a.example.org/inst": `<institutions-response><hei><hei-id>a</hei-id></hei></institutions-response>`,
	}}
	env := Env{
		URL:   "https://target.example.org/ounits",
		Probe: probe,
		Catalogue: fakeCatalogue{
			covered: []string{"a", "b"},
			urls: map[string][]string{
				"a": {"https://a.example.org/inst"},
				"b": {"https://b.example.org/inst"},
			},
		},
	}
	params := []Parameter{
		{Name: "hei_id", Strategy: CoveredHEIs(), Missing: "no heis"},
		{
			Name:      "ounit_id",
			DependsOn: []string{"hei_id"},
			Strategy: FromAPI("institutions", "", "hei_id", func(hei string, _ *Values) transport.Params {
				return transport.Params{transport.P("hei_id", hei)}
			}, "hei", "ounit-id"),
		},
		{Name: "ounit_code", Optional: true},
	}

	vals, err := Resolve(context.Background(), params, nil, env)
	require.NoError(t, err)
	assert.Equal(t, "b", vals.Value("hei_id"), "hei narrowed to the owner of the ounit")
	assert.Equal(t, []string{"a", "b"}, vals.Candidates("hei_id"))
	assert.Equal(t, "ou-b", vals.Value("ounit_id"))
	_, ok := vals.Get("ounit_code")
	assert.False(t, ok)
	assert.Equal(t, []string{
		"https://a.example.org/inst?hei_id=a",
		"https://b.example.org/inst?hei_id=b",
	}, probe.calls)
}

func TestResolveUnresolved(t *testing.T) {
	params := []Parameter{{
		Name:     "hei_id",
		Strategy: CoveredHEIs(),
		Missing:  "Manifest file doesn't contain any <hei-id> field. We cannot preform tests.",
	}}
	_, err := Resolve(context.Background(), params, nil, Env{Catalogue: fakeCatalogue{}})
	var ue *UnresolvedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Manifest file doesn't contain any <hei-id> field. We cannot preform tests.", ue.Error())
}

func TestNarrowRules(t *testing.T) {
	vals := NewValues()
	vals.set("hei_id", "a", []string{"a", "b"}, false)
	vals.set("user", "u", []string{"u"}, true)

	assert.NoError(t, vals.Narrow("hei_id", "b"))
	assert.Equal(t, "b", vals.Value("hei_id"))
	assert.Error(t, vals.Narrow("hei_id", "c"))
	assert.Error(t, vals.Narrow("missing", "x"))
	assert.NoError(t, vals.Narrow("user", "u"))
	assert.Error(t, vals.Narrow("user", "v"))
}

func TestLimit(t *testing.T) {
	m := map[string]string{"max-hei-ids": "3", "max-bad": "x", "max-zero": "0"}
	assert.Equal(t, 3, Limit(m, "max-hei-ids"))
	assert.Equal(t, 1, Limit(m, "max-bad"))
	assert.Equal(t, 1, Limit(m, "max-zero"))
	assert.Equal(t, 1, Limit(m, "max-ounit-ids"))
}

func TestFirstAndFixed(t *testing.T) {
	s := First(Fixed(), Fixed("x", "y"))
	got, err := s(context.Background(), Env{}, NewValues())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}
