package universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaultSeed(t *testing.T) {
	u, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, len(DefaultSymbols), u.Len())
	assert.True(t, u.Contains("NVDA"))
}

func TestLoad_NormalizesSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	raw := "symbols:\n  - nvda\n  - ' AMD '\n  - NVDA\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	u, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AMD", "NVDA"}, u.Symbols)
}

func TestLoad_EmptyListIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: []\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddRemoveContains(t *testing.T) {
	u := &Universe{}

	assert.True(t, u.Add("pltr"))
	assert.False(t, u.Add("PLTR"), "duplicates are rejected case-insensitively")
	assert.False(t, u.Add("  "))
	assert.True(t, u.Contains("PLTR"))

	assert.True(t, u.Remove("PLTR"))
	assert.False(t, u.Remove("PLTR"))
	assert.Zero(t, u.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	u := Default()
	require.NoError(t, u.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, u.Symbols, loaded.Symbols)
}

func TestDefault_CopiesSeed(t *testing.T) {
	u := Default()
	u.Remove("NVDA")

	assert.Contains(t, DefaultSymbols, "NVDA", "mutating a universe must not touch the seed")
}
