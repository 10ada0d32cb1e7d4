package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsledger/internal/config"
)

func newTestManager(t *testing.T) (*Manager, *config.Paths) {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return NewManager(paths, nil), paths
}

func TestManagerResolvePath(t *testing.T) {
	m, paths := newTestManager(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "raw prefix", in: "raw/1T2024/a.zip", want: filepath.Join(paths.RawDir, "1T2024", "a.zip")},
		{name: "registry prefix", in: "registry/Relatorio_cadop.csv", want: paths.RegistryCSV},
		{name: "output prefix", in: "output/operadoras.csv", want: paths.OperatorsCSV},
		{name: "docs prefix", in: "docs/relatorio_erros.csv", want: paths.ErrorReportCSV},
		{name: "root fallback", in: "config.yaml", want: filepath.Join(paths.Root, "config.yaml")},
		{name: "absolute untouched", in: "/tmp/x.csv", want: "/tmp/x.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.resolvePath(tt.in))
		})
	}
}

func TestManagerFileExistsRequiresContent(t *testing.T) {
	m, paths := newTestManager(t)

	assert.False(t, m.FileExists("registry/Relatorio_cadop.csv"))

	require.NoError(t, os.WriteFile(paths.RegistryCSV, nil, 0644))
	assert.False(t, m.FileExists("registry/Relatorio_cadop.csv"))

	require.NoError(t, os.WriteFile(paths.RegistryCSV, []byte("CNPJ\n"), 0644))
	assert.True(t, m.FileExists("registry/Relatorio_cadop.csv"))
}

func TestManagerMoveFile(t *testing.T) {
	m, paths := newTestManager(t)

	src := filepath.Join(paths.RawDir, "1T2024", "1T2024.zip.part")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("zip"), 0644))

	require.NoError(t, m.MoveFile(src, "raw/1T2024/1T2024.zip"))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	size, err := m.GetFileSize("raw/1T2024/1T2024.zip")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
}

func TestManagerCopyFile(t *testing.T) {
	m, paths := newTestManager(t)
	require.NoError(t, os.WriteFile(paths.RegistryCSV, []byte("CNPJ;UF\n"), 0644))

	require.NoError(t, m.CopyFile("registry/Relatorio_cadop.csv", "output/copia.csv"))
	data, err := os.ReadFile(filepath.Join(paths.OutputDir, "copia.csv"))
	require.NoError(t, err)
	assert.Equal(t, "CNPJ;UF\n", string(data))

	assert.Error(t, m.CopyFile("registry/missing.csv", "output/x.csv"))
}
