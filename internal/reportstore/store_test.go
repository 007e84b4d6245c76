package reportstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

func sampleReport(id, api string, started time.Time, status report.Status) report.Report {
	return report.Report{
		ID:        id,
		API:       api,
		Version:   "2.0.0",
		URL:       "https://hei.example.org/" + api,
		StartedAt: started,
		Steps: []report.Step{
			{Name: "Verifying API version.", Phase: report.PhaseSetup, Status: report.StatusSuccess, Message: "OK"},
			{Name: "Request one unknown ID, expect 200 and empty response.", Phase: report.PhaseMain, Status: status},
		},
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	store := New(t.TempDir())
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := sampleReport("6f1c", "institutions", started, report.StatusWarning)

	require.NoError(t, store.Save(r))

	loaded, err := store.Load("6f1c")
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, r.URL, loaded.URL)
	assert.True(t, r.StartedAt.Equal(loaded.StartedAt))
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, report.StatusWarning, loaded.Steps[1].Status)
	assert.Equal(t, report.PhaseSetup, loaded.Steps[0].Phase)

	require.NoError(t, store.Delete("6f1c"))
	_, err = store.Load("6f1c")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_List(t *testing.T) {
	store := New(t.TempDir())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(sampleReport("a", "institutions", base, report.StatusSuccess)))
	require.NoError(t, store.Save(sampleReport("b", "institutions", base.Add(time.Hour), report.StatusFailure)))
	require.NoError(t, store.Save(sampleReport("c", "iias", base.Add(2*time.Hour), report.StatusNotice)))

	all, err := store.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, report.StatusFailure, all[1].Worst)

	inst, err := store.List("institutions")
	require.NoError(t, err)
	assert.Len(t, inst, 2)

	none, err := store.List("organizational-units")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Validation(t *testing.T) {
	store := New(t.TempDir())
	assert.Error(t, store.Save(report.Report{API: "iias"}))
	assert.Error(t, store.Save(report.Report{ID: "x"}))
	_, err := store.Load("")
	assert.Error(t, err)
	assert.Error(t, store.Delete(""))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"institutions", "institutions"},
		{"../../etc/passwd", "etc_passwd"},
		{"a b:c", "a_b_c"},
		{"...", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
