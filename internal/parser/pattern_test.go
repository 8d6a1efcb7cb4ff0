package parser

import (
	"testing"

	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternParser_PythonClassAndMethod(t *testing.T) {
	src := `class Widget(Base):
    def render(self):
        return self.paint()

    def paint(self):
        pass
`
	p := NewPatternParser(0)
	fp, err := p.ParseFile(ParseInput{FilePath: "widget.py", Language: "python", Content: []byte(src)})
	require.NoError(t, err)

	var class, render, paint *models.Node
	for i := range fp.Nodes {
		switch fp.Nodes[i].Name {
		case "Widget":
			class = &fp.Nodes[i]
		case "render":
			render = &fp.Nodes[i]
		case "paint":
			paint = &fp.Nodes[i]
		}
	}
	require.NotNil(t, class)
	require.NotNil(t, render)
	require.NotNil(t, paint)
	assert.Equal(t, models.NodeKindClass, class.Kind)
	assert.Equal(t, models.NodeKindMethod, render.Kind)

	var inherits, calls bool
	for _, r := range fp.References {
		if r.Kind == models.RelationInherits && r.TargetName == "Base" {
			inherits = true
		}
		if r.Kind == models.RelationCalls && r.TargetName == "paint" {
			calls = true
		}
	}
	assert.True(t, inherits, "expected Widget to inherit Base")
	assert.True(t, calls, "expected render to call paint")
}

func TestPatternParser_GoFunctionAndImport(t *testing.T) {
	src := `package main

import "fmt"

func main() {
	fmt.Println(helper())
}

func helper() string {
	return "hi"
}
`
	p := NewPatternParser(0)
	fp, err := p.ParseFile(ParseInput{FilePath: "main.go", Language: "go", Content: []byte(src)})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, n := range fp.Nodes {
		names[n.Name] = true
	}
	assert.True(t, names["main"])
	assert.True(t, names["helper"])

	var foundImport bool
	for _, imp := range fp.Imports {
		if imp.ImportPath == "fmt" {
			foundImport = true
		}
	}
	assert.True(t, foundImport)
}

func TestPatternParser_BasicLanguageOnlyFileNode(t *testing.T) {
	p := NewPatternParser(0)
	fp, err := p.ParseFile(ParseInput{FilePath: "config.json", Language: "json", Content: []byte(`{"a": 1}`)})
	require.NoError(t, err)
	require.Len(t, fp.Nodes, 1)
	assert.Equal(t, models.NodeKindFile, fp.Nodes[0].Kind)
}

func TestCyclomaticComplexity(t *testing.T) {
	body := []string{"if x {", "  if y {", "  }", "} else if z {", "}"}
	// 4 keyword hits (if, if, else, if) -> complexity 1+4=5 -> scaled 5/5+1=2
	assert.Equal(t, 2, cyclomaticComplexity("go", body))
}

func TestCyclomaticComplexity_ClampedToTen(t *testing.T) {
	body := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		body = append(body, "if x {")
	}
	assert.Equal(t, 10, cyclomaticComplexity("go", body))
}

func TestIsPublicName(t *testing.T) {
	assert.True(t, isPublicName("go", "Exported"))
	assert.False(t, isPublicName("go", "unexported"))
	assert.False(t, isPublicName("python", "_private"))
	assert.True(t, isPublicName("python", "public"))
}
