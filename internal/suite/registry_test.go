package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
)

func TestRegistryFind(t *testing.T) {
	old := API{Name: "iias", Endpoint: "index", MinMajor: 2, MaxMajor: 5,
		Parameters: []fixture.Parameter{{Name: "hei_id"}, {Name: "partner_hei_id"}}}
	current := API{Name: "iias", Endpoint: "index", MinMajor: 6,
		Parameters: []fixture.Parameter{{Name: "hei_id"}, {Name: "iia_id"}}}
	reg := NewRegistry(current, old)

	tests := []struct {
		name     string
		api      string
		endpoint string
		version  string
		want     int
		err      error
	}{
		{name: "current", api: "iias", endpoint: "index", version: "7.0.0", want: 6},
		{name: "old", api: "iias", endpoint: "index", version: "3.1.0", want: 2},
		{name: "too old", api: "iias", endpoint: "index", version: "1.0.0", err: ErrUnsupportedVersion},
		{name: "unknown endpoint", api: "iias", endpoint: "get", version: "7.0.0", err: ErrUnknownAPI},
		{name: "unknown api", api: "courses", version: "1.0.0", err: ErrUnknownAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Find(tt.api, tt.endpoint, semver.MustParse(tt.version))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.MinMajor)
		})
	}
}

func TestRegistryAPIsAndParameters(t *testing.T) {
	reg := NewRegistry(
		API{Name: "ounits", MinMajor: 2},
		API{Name: "iias", Endpoint: "index", MinMajor: 6},
		API{Name: "iias", Endpoint: "index", MinMajor: 2, MaxMajor: 5},
	)
	var keys []string
	for _, a := range reg.APIs() {
		keys = append(keys, a.Key())
	}
	assert.Equal(t, []string{"iias/index", "iias/index", "ounits"}, keys)
	assert.Equal(t, 2, reg.APIs()[0].MinMajor)

	merged := NewRegistry(
		API{Name: "x", Parameters: []fixture.Parameter{{Name: "a", Description: "first"}}},
		API{Name: "x", Parameters: []fixture.Parameter{{Name: "a", Description: "second"}, {Name: "b"}}},
	)
	params, err := merged.Parameters("x", "", semver.New(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "first", params[0].Description)
	assert.Equal(t, "b", params[1].Name)
}
