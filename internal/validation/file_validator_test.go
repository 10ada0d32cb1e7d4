package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "claimsledger/internal/errors"
	"claimsledger/internal/testutil"
)

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		pattern       string
		wantCount     int
		wantErr       bool
		errorContains string
	}{
		{
			name: "valid directory with files",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "despesas_eventos_sinistros_1T2024.csv"), []byte("x"), 0644))
				require.NoError(t, os.Mkdir(filepath.Join(dir, "despesas_eventos_sinistros_dir.csv"), 0755))
				return dir
			},
			pattern:   "despesas_eventos_sinistros_*.csv",
			wantCount: 1,
		},
		{
			name: "valid directory without files",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			pattern: "*.csv",
		},
		{
			name: "non-existent directory",
			setupFunc: func(t *testing.T) string {
				return "/non/existent/path"
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "path is file not directory",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "test.txt")
				require.NoError(t, os.WriteFile(file, []byte("test"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			validator := NewFileValidator(logger)

			count, err := validator.ValidateInputDirectory(tt.setupFunc(t), tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestFileValidator_ValidateInputDirectoryWarnsWhenEmpty(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	_, err := NewFileValidator(logger).ValidateInputDirectory(t.TempDir(), "*.csv")
	require.NoError(t, err)
	assert.True(t, capture.ContainsMessage("No files matching pattern found"))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "output")
	v := NewFileValidator(nil)

	require.NoError(t, v.ValidateOutputDirectory(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "the write probe must be removed")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(blocker, "sub")))
}

func TestFileValidator_ValidateTabularFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		return p
	}

	tests := []struct {
		name          string
		path          string
		errorContains string
	}{
		{name: "csv", path: write("a.csv")},
		{name: "txt", path: write("b.TXT")},
		{name: "xlsx", path: write("c.xlsx")},
		{name: "lock file", path: write("~$c.xlsx"), errorContains: "temporary"},
		{name: "pdf", path: write("d.pdf"), errorContains: "unsupported extension .pdf"},
		{name: "missing", path: filepath.Join(dir, "nope.csv"), errorContains: "does not exist"},
		{name: "directory", path: dir, errorContains: "is a directory"},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateTabularFile(tt.path)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_RequireArtifacts(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "consolidado_despesas.csv")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0644))

	v := NewFileValidator(nil)
	require.NoError(t, v.RequireArtifacts(present))

	err := v.RequireArtifacts(present, filepath.Join(dir, "enriquecido.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"enriquecido.csv"}, appErr.Context["missing"])
}
