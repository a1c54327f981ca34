package setup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonemeter/internal/api"
	"zonemeter/internal/config"
	"zonemeter/internal/store"
)

func TestAnalyzeSetup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"m1_energy": 100,
			"m1_power": 42,
			"m2_energy": 200
		}`))
	}))
	defer server.Close()

	cfg := &config.Config{API: config.APIConfig{BaseURL: server.URL}}
	client := api.NewClient(cfg)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Reassign(context.Background(), "m1", "unit-a", "test", time.Now())
	require.NoError(t, err)

	meters, err := NewAnalyzer(client, st).AnalyzeSetup(context.Background())
	require.NoError(t, err)
	require.Len(t, meters, 2)

	assert.Equal(t, "m1", meters[0].MeterID)
	assert.Equal(t, []string{"energy", "power"}, meters[0].Suffixes)
	assert.EqualValues(t, "unit-a", meters[0].Zone)

	assert.Equal(t, "m2", meters[1].MeterID)
	assert.Empty(t, meters[1].Zone, "unassigned meters surface with no zone")
}
