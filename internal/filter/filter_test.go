package filter

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldParse_ExcludesByExtension(t *testing.T) {
	f := New(afero.NewMemMapFs())
	assert.False(t, f.ShouldParse("config.yaml", 100))
	assert.False(t, f.ShouldParse("README.md", 100))
	assert.True(t, f.ShouldParse("src/main.py", 100))
}

func TestShouldParse_ExcludesByFilenameGlob(t *testing.T) {
	f := New(afero.NewMemMapFs())
	assert.False(t, f.ShouldParse("Dockerfile", 10))
	assert.False(t, f.ShouldParse("app.min.js", 10))
	assert.False(t, f.ShouldParse("models_pb2.py", 10))
}

func TestShouldParse_ExcludesByDirSegment(t *testing.T) {
	f := New(afero.NewMemMapFs())
	assert.False(t, f.ShouldParse("vendor/pkg/lib.go", 10))
	assert.False(t, f.ShouldParse("node_modules/x/index.js", 10))
}

func TestShouldParse_SizeCeiling(t *testing.T) {
	f := New(afero.NewMemMapFs())
	f.MaxFileSizeBytes = 10
	assert.False(t, f.ShouldParse("src/big.py", 11))
	assert.True(t, f.ShouldParse("src/small.py", 10))
}

func TestShouldParse_PythonTestTierRejected(t *testing.T) {
	f := New(afero.NewMemMapFs())
	assert.False(t, f.ShouldParse("app/tests/test_widget.py", 10))
}

func TestPriorityTier_HighForSrcSegment(t *testing.T) {
	f := New(afero.NewMemMapFs())
	assert.Equal(t, TierHigh, f.PriorityTier("src/core/widget.py"))
}

func TestWalk_MemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/src/main.py", []byte("print(1)"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/README.md", []byte("# hi"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/vendor/lib.py", []byte("x=1"), 0o644))

	f := New(fs)
	candidates, stats, err := f.Walk("/repo")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "/repo/src/main.py", candidates[0].Path)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Included)
}
