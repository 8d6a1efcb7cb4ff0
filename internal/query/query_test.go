package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/api"
	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/storage"
)

type fakeStore struct {
	storage.Store
	nodes []models.Node
	rels  []models.Relationship
}

func (f *fakeStore) GetNodes(_ context.Context, _ string, filter storage.NodeFilter) ([]models.Node, error) {
	out := make([]models.Node, len(f.nodes))
	copy(out, f.nodes)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetRelationshipsForNodes(_ context.Context, _ string, nodeIDs []string, _ storage.RelationshipFilter) ([]models.Relationship, error) {
	inBatch := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		inBatch[id] = true
	}
	var out []models.Relationship
	for _, r := range f.rels {
		if inBatch[r.SourceNodeID] || inBatch[r.TargetNodeID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func complexity(v int) *int { return &v }

func TestQueryGraph_FiltersDanglingEdges(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{
			{ID: "a", Name: "a", Kind: models.NodeKindFunction, Complexity: complexity(2)},
			{ID: "b", Name: "b", Kind: models.NodeKindFunction, Complexity: complexity(8)},
		},
		rels: []models.Relationship{
			{ID: "r1", SourceNodeID: "a", TargetNodeID: "b", Kind: models.RelationCalls},
			{ID: "r2", SourceNodeID: "a", TargetNodeID: "ghost", Kind: models.RelationCalls},
		},
	}
	eng := New(store)
	res, err := eng.QueryGraph(context.Background(), api.GraphQuery{RepositoryID: "repo-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalNodes)
	assert.Equal(t, 1, res.TotalRelationships, "edge pointing at a node outside the result set must be dropped")
}

func TestGetGraphStatistics_ComplexityMedian(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{
			{ID: "a", Kind: models.NodeKindFunction, Complexity: complexity(2)},
			{ID: "b", Kind: models.NodeKindFunction, Complexity: complexity(4)},
			{ID: "c", Kind: models.NodeKindFunction, Complexity: complexity(9)},
		},
	}
	eng := New(store)
	stats, err := eng.GetGraphStatistics(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, stats.ComplexityMedian)
	assert.Equal(t, 2, stats.ComplexityMin)
	assert.Equal(t, 9, stats.ComplexityMax)
}

func TestSearchNodes_CaseInsensitiveSubstring(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{
			{ID: "a", Name: "ParseFile", QualifiedName: "main.go::ParseFile"},
			{ID: "b", Name: "Builder", QualifiedName: "builder.go::Builder"},
		},
	}
	eng := New(store)
	out, err := eng.SearchNodes(context.Background(), "repo-1", "parse", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ParseFile", out[0].Name)
}

func TestSearchNodes_MatchesDocstring(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{
			{ID: "a", Name: "Widget", Docstring: "renders the login form"},
			{ID: "b", Name: "Gadget", Docstring: "unrelated"},
		},
	}
	eng := New(store)
	out, err := eng.SearchNodes(context.Background(), "repo-1", "login", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Widget", out[0].Name)
}

func TestExportSubgraph_WrapsQueryGraphResult(t *testing.T) {
	store := &fakeStore{
		nodes: []models.Node{{ID: "a", Name: "main"}},
	}
	eng := New(store)
	data, err := eng.ExportSubgraph(context.Background(), api.GraphQuery{RepositoryID: "repo-1"})
	require.NoError(t, err)

	var export SubgraphExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "repo-1", export.RepositoryID)
	require.Len(t, export.Nodes, 1)
	assert.Equal(t, float64(1), export.Metadata["total_nodes"])
}
