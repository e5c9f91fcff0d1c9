package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchPlaces(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"valid", http.StatusOK, `{"meta": {"version": "2026-10-01"}, "places": {"جنين": "west_bank"}}`, false},
		{"empty places", http.StatusOK, `{"meta": {}, "places": {}}`, true},
		{"broken json", http.StatusOK, `{"places": `, true},
		{"not found", http.StatusNotFound, ``, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			file, err := FetchPlaces(context.Background(), &http.Client{Timeout: time.Second}, srv.URL)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "2026-10-01", file.Meta.Version)
			assert.Equal(t, ZoneWestBank, file.Places["جنين"])
		})
	}
}

func TestWritePlacesFile_RoundTripsThroughLoader(t *testing.T) {
	b := NewBuilder()
	b.ApplyAliases(map[string]Zone{"بيت حنينا": ZoneJerusalemSuburbs})

	path := filepath.Join(t.TempDir(), "nested", "places.json")
	require.NoError(t, WritePlacesFile(path, b.Build(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	idx, err := LoadPlaceIndex(path, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", idx.Meta().Version)
	z, ok := idx.Lookup("بيت حنينا")
	require.True(t, ok)
	assert.Equal(t, ZoneJerusalemSuburbs, z)
}
