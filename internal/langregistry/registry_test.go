package langregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	r := NewRegistry()

	d, ok := r.DetectLanguage("pkg/service/handler.go")
	require.True(t, ok)
	assert.Equal(t, "go", d.Name)
	assert.Equal(t, "go", d.GrammarID)

	d, ok = r.DetectLanguage("app/models/widget.py")
	require.True(t, ok)
	assert.Equal(t, "python", d.Name)

	_, ok = r.DetectLanguage("README")
	assert.False(t, ok)
}

func TestDetectLanguage_ConfigOnly(t *testing.T) {
	r := NewRegistry()
	d, ok := r.DetectLanguage("package.json")
	require.True(t, ok)
	assert.True(t, d.IsConfigOnly)
}

func TestRegister_Override(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "go", Extensions: []string{".go"}, GrammarID: "go-custom"})
	d, ok := r.DetectLanguage("x.go")
	require.True(t, ok)
	assert.Equal(t, "go-custom", d.GrammarID)
}

func TestLanguages_NoDuplicates(t *testing.T) {
	r := NewRegistry()
	langs := r.Languages()
	seen := make(map[string]bool)
	for _, l := range langs {
		assert.False(t, seen[l], "duplicate language %s", l)
		seen[l] = true
	}
	assert.True(t, seen["go"])
	assert.True(t, seen["python"])
}
