package graph

import (
	"context"
	"testing"

	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	nodes []models.Node
	rels  []models.Relationship
}

func (f *fakeSink) CreateNodes(_ context.Context, nodes []models.Node) error {
	f.nodes = append(f.nodes, nodes...)
	return nil
}

func (f *fakeSink) CreateRelationships(_ context.Context, rels []models.Relationship) error {
	f.rels = append(f.rels, rels...)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) byName(name string) *models.Node {
	for i := range f.nodes {
		if f.nodes[i].Name == name {
			return &f.nodes[i]
		}
	}
	return nil
}

func TestBuildGraph_IntraFileCallResolved(t *testing.T) {
	files := []FileParse{
		{
			FilePath: "main.go",
			Language: "go",
			Nodes: []models.Node{
				{Kind: models.NodeKindFile, Name: "main.go"},
				{Kind: models.NodeKindFunction, Name: "main", Span: models.Span{LineStart: 3, LineEnd: 5}},
				{Kind: models.NodeKindFunction, Name: "helper", Span: models.Span{LineStart: 7, LineEnd: 9}},
			},
			References: []RawReference{
				{FromNodeIndex: 1, TargetName: "helper", Kind: models.RelationCalls, Confidence: models.ConfidenceIntraFileCalls},
			},
		},
	}

	sink := &fakeSink{}
	b := NewBuilder("repo-1")
	stats, err := b.BuildGraph(context.Background(), sink, files)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)

	main := sink.byName("main")
	helper := sink.byName("helper")
	require.NotNil(t, main)
	require.NotNil(t, helper)

	var found bool
	for _, r := range sink.rels {
		if r.Kind == models.RelationCalls && r.SourceNodeID == main.ID && r.TargetNodeID == helper.ID {
			found = true
		}
	}
	assert.True(t, found, "expected a calls relationship from main to helper")
}

func TestBuildGraph_ContainmentBySpan(t *testing.T) {
	files := []FileParse{
		{
			FilePath: "widget.py",
			Language: "python",
			Nodes: []models.Node{
				{Kind: models.NodeKindFile, Name: "widget.py"},
				{Kind: models.NodeKindClass, Name: "Widget", Span: models.Span{LineStart: 1, LineEnd: 20}},
				{Kind: models.NodeKindMethod, Name: "render", Span: models.Span{LineStart: 5, LineEnd: 10}},
			},
		},
	}
	sink := &fakeSink{}
	b := NewBuilder("repo-1")
	_, err := b.BuildGraph(context.Background(), sink, files)
	require.NoError(t, err)

	widget := sink.byName("Widget")
	render := sink.byName("render")
	require.NotNil(t, widget)
	require.NotNil(t, render)

	var contains bool
	for _, r := range sink.rels {
		if r.Kind == models.RelationContains && r.SourceNodeID == widget.ID && r.TargetNodeID == render.ID {
			contains = true
		}
	}
	assert.True(t, contains, "expected render to be contained by Widget, not the file")
}

func TestBuildGraph_CrossFileImportResolved(t *testing.T) {
	files := []FileParse{
		{
			FilePath: "a.py",
			Nodes: []models.Node{
				{Kind: models.NodeKindFile, Name: "a.py"},
				{Kind: models.NodeKindImport, Name: "b", Span: models.Span{LineStart: 1, LineEnd: 1}},
			},
			Imports: []RawImport{{FromNodeIndex: 1, ImportPath: "./b"}},
		},
		{
			FilePath: "b.py",
			Nodes: []models.Node{
				{Kind: models.NodeKindFile, Name: "b.py"},
			},
		},
	}
	sink := &fakeSink{}
	b := NewBuilder("repo-1")
	_, err := b.BuildGraph(context.Background(), sink, files)
	require.NoError(t, err)

	var found bool
	for _, r := range sink.rels {
		if r.Kind == models.RelationImports {
			found = true
		}
	}
	assert.True(t, found, "expected an imports relationship to b.py's File node")
}

func TestAbsorbFile_MatchesBuildGraph(t *testing.T) {
	files := []FileParse{
		{
			FilePath: "main.go",
			Language: "go",
			Nodes: []models.Node{
				{Kind: models.NodeKindFile, Name: "main.go"},
				{Kind: models.NodeKindFunction, Name: "main", Span: models.Span{LineStart: 3, LineEnd: 5}},
				{Kind: models.NodeKindFunction, Name: "helper", Span: models.Span{LineStart: 7, LineEnd: 9}},
			},
			References: []RawReference{
				{FromNodeIndex: 1, TargetName: "helper", Kind: models.RelationCalls, Confidence: models.ConfidenceIntraFileCalls},
			},
		},
	}

	b := NewBuilder("repo-1")
	nodes, rels := b.AbsorbFile(files[0])
	assert.Len(t, nodes, 3)

	var byName = func(name string) *models.Node {
		for i := range nodes {
			if nodes[i].Name == name {
				return &nodes[i]
			}
		}
		return nil
	}
	main := byName("main")
	helper := byName("helper")
	require.NotNil(t, main)
	require.NotNil(t, helper)

	var found bool
	for _, r := range rels {
		if r.Kind == models.RelationCalls && r.SourceNodeID == main.ID && r.TargetNodeID == helper.ID {
			found = true
		}
	}
	assert.True(t, found, "expected AbsorbFile to return the intra-file calls relationship immediately")
}

func TestCrossFileRelationships_AfterStreamingAbsorb(t *testing.T) {
	a := FileParse{
		FilePath: "a.py",
		Nodes: []models.Node{
			{Kind: models.NodeKindFile, Name: "a.py"},
			{Kind: models.NodeKindImport, Name: "b", Span: models.Span{LineStart: 1, LineEnd: 1}},
		},
		Imports: []RawImport{{FromNodeIndex: 1, ImportPath: "./b"}},
	}
	bFile := FileParse{
		FilePath: "b.py",
		Nodes: []models.Node{
			{Kind: models.NodeKindFile, Name: "b.py"},
		},
	}

	builder := NewBuilder("repo-1")
	builder.AbsorbFile(a)
	builder.AbsorbFile(bFile)

	rels := builder.CrossFileRelationships(context.Background(), map[string]string{"a.py": "", "b.py": ""})
	var found bool
	for _, r := range rels {
		if r.Kind == models.RelationImports {
			found = true
		}
	}
	assert.True(t, found, "expected an imports relationship once both files were absorbed")
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "Depends_on", sanitizeLabel("depends-on"))
	assert.Equal(t, "Function", sanitizeLabel("function"))
}

func TestRelLabel(t *testing.T) {
	assert.Equal(t, "DEPENDS_ON", relLabel(models.RelationDependsOn))
	assert.Equal(t, "CALLS", relLabel(models.RelationCalls))
}
