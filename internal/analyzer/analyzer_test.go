package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/storage"
)

type fakeStore struct {
	storage.Store
	nodes       []models.Node
	rels        []models.Relationship
	nodesByRepo map[string][]models.Node
}

func (f *fakeStore) GetNodes(_ context.Context, repoID string, _ storage.NodeFilter) ([]models.Node, error) {
	if f.nodesByRepo != nil {
		return f.nodesByRepo[repoID], nil
	}
	return f.nodes, nil
}

func (f *fakeStore) GetRelationshipsForNodes(_ context.Context, _ string, _ []string, _ storage.RelationshipFilter) ([]models.Relationship, error) {
	return f.rels, nil
}

func complexity(v int) *int { return &v }

func newAnalyzer(store storage.Store) *Analyzer {
	return New(query.New(store))
}

func TestDetectCycles_ThreeNodeCycle(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		rels: []models.Relationship{
			{ID: "1", SourceNodeID: "A", TargetNodeID: "B", Kind: models.RelationDependsOn},
			{ID: "2", SourceNodeID: "B", TargetNodeID: "C", Kind: models.RelationDependsOn},
			{ID: "3", SourceNodeID: "C", TargetNodeID: "A", Kind: models.RelationDependsOn},
		},
	}
	a := newAnalyzer(store)
	result, err := a.Analyze(context.Background(), "repo-1", models.AnalysisDependencyTree)
	require.NoError(t, err)

	cycles := result["cycles"].([][]string)
	require.NotEmpty(t, cycles, "expected at least one cycle among A->B->C->A")

	vertices := map[string]bool{}
	for _, v := range cycles[0] {
		vertices[v] = true
	}
	assert.True(t, vertices["A"] && vertices["B"] && vertices["C"])
}

func TestHotspotScoring(t *testing.T) {
	tests := []struct {
		name     string
		incoming int
		outgoing int
		score    int
		complex  int
	}{
		{"matches spec example", 10, 2, 46, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := []models.Node{{ID: "X", Complexity: complexity(tt.complex)}}
			for i := 0; i < tt.incoming; i++ {
				nodes = append(nodes, models.Node{ID: "caller"})
			}
			var rels []models.Relationship
			for i := 0; i < tt.incoming; i++ {
				rels = append(rels, models.Relationship{ID: "in" + string(rune('a'+i)), SourceNodeID: "caller", TargetNodeID: "X", Kind: models.RelationCalls})
			}
			for i := 0; i < tt.outgoing; i++ {
				rels = append(rels, models.Relationship{ID: "out" + string(rune('a'+i)), SourceNodeID: "X", TargetNodeID: "callee", Kind: models.RelationCalls})
			}
			store := &fakeStore{nodes: nodes, rels: rels}
			a := newAnalyzer(store)
			result, err := a.Analyze(context.Background(), "repo-1", models.AnalysisHotspots)
			require.NoError(t, err)

			found := false
			for _, h := range result["hotspots"].([]hotspot) {
				if h.NodeID == "X" {
					found = true
					assert.Equal(t, tt.score, h.Score)
				}
			}
			assert.True(t, found, "expected node X in the hotspot list")
		})
	}
}

func TestComplexityBuckets(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{
			{ID: "a", Complexity: complexity(1)},
			{ID: "b", Complexity: complexity(5)},
			{ID: "c", Complexity: complexity(9)},
		},
	}
	a := newAnalyzer(store)
	result, err := a.Analyze(context.Background(), "repo-1", models.AnalysisComplexity)
	require.NoError(t, err)
	assert.Equal(t, 1, result["low"])
	assert.Equal(t, 1, result["medium"])
	assert.Equal(t, 1, result["high"])
}

func TestArchitecture_ModularityDefaultsToOneOnEmptyEdges(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{{ID: "a", Kind: models.NodeKindFile, FilePath: "main.go"}},
	}
	a := newAnalyzer(store)
	result, err := a.Analyze(context.Background(), "repo-1", models.AnalysisArchitecture)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result["modularity"])
}

func TestCompare_ArchitectureDeltaPerDirectory(t *testing.T) {
	store := &fakeStore{
		nodesByRepo: map[string][]models.Node{
			"repo-a": {
				{ID: "a1", Kind: models.NodeKindFile, FilePath: "src/a.go"},
			},
			"repo-b": {
				{ID: "b1", Kind: models.NodeKindFile, FilePath: "src/a.go"},
				{ID: "b2", Kind: models.NodeKindFunction, FilePath: "src/b.go"},
			},
		},
	}
	a := newAnalyzer(store)
	result, err := a.Compare(context.Background(), "repo-a", "repo-b", models.AnalysisArchitecture)
	require.NoError(t, err)

	delta, ok := result["delta"].(map[string]any)
	require.True(t, ok, "expected a delta field for architecture comparisons")
	byDir, ok := delta["by_directory"].(map[string]map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, byDir["src"]["nodes"], "repo-b has one more node under src than repo-a")
}
