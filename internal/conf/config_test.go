package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()
	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, SplitNamingStructured, s.Container.SplitNaming)
	assert.Equal(t, MetadataBackendSQLite, s.Metadata.Backend)
	assert.InDelta(t, -0.2, s.Epochs.TMin, 1e-12)
	assert.InDelta(t, 0.5, s.Epochs.TMax, 1e-12)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"tmin_after_tmax", func(s *Settings) { s.Epochs.TMin = 1; s.Epochs.TMax = 0 }, "tmin"},
		{"zero_decim", func(s *Settings) { s.Epochs.Decim = 0 }, "decim"},
		{"negative_workers", func(s *Settings) { s.Epochs.Workers = -1 }, "workers"},
		{"negative_budget", func(s *Settings) { s.Container.MaxFileSize = -1 }, "maxfilesize"},
		{"bad_naming", func(s *Settings) { s.Container.SplitNaming = "fancy" }, "splitnaming"},
		{"zero_max_splits", func(s *Settings) { s.Container.MaxSplits = 0 }, "maxsplits"},
		{"bad_backend", func(s *Settings) { s.Metadata.Backend = "csv" }, "backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
