package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "golden/a.yaml", "nested/c.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	files, err = FindScenarios(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarios_Errors(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "missing"), "")
	var notFound *DirNotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = FindScenarios(t.TempDir(), "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "payout.golden"),
		GoldenPath(filepath.Join("scenarios", "payout.yaml")))
}
