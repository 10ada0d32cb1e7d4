package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsledger/internal/config"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "defaults run every stage",
			args: nil,
			want: options{},
		},
		{
			name: "stage list is trimmed",
			args: []string{"-stage", " validate, enrich ,,aggregate"},
			want: options{stages: []string{"validate", "enrich", "aggregate"}},
		},
		{
			name: "grouping and strict modes",
			args: []string{"-group-by", "identifier", "-strict-join", "-strict", "-root", "/tmp/run"},
			want: options{groupBy: config.GroupByIdentifier, strictJoin: true, strict: true, root: "/tmp/run"},
		},
		{
			name:    "unknown grouping",
			args:    []string{"-group-by", "uf"},
			wantErr: true,
		},
		{
			name:    "positional arguments",
			args:    []string{"extra"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := config.Default()
	options{root: "/srv/ledger", groupBy: config.GroupByIdentifier, strictJoin: true}.apply(cfg)

	assert.Equal(t, "/srv/ledger", cfg.Paths.Root)
	assert.Equal(t, config.GroupByIdentifier, cfg.Pipeline.GroupBy)
	assert.True(t, cfg.Pipeline.StrictJoin)
	assert.False(t, cfg.Pipeline.StrictValidation)
}
