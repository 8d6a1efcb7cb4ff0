package storage

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SourceLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := &models.Source{
		ID: "src-1", Kind: models.SourceKindProjectRepo, Name: "widgets",
		LocalPath: "/tmp/widgets", Status: models.ParsingStatusPending,
		Languages: []string{"go"}, Metadata: map[string]any{"note": "seed"},
	}
	require.NoError(t, store.CreateSource(ctx, src))

	got, err := store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "widgets", got.Name)
	assert.Equal(t, []string{"go"}, got.Languages)

	src.Status = models.ParsingStatusCompleted
	now := time.Now()
	src.CompletedAt = &now
	require.NoError(t, store.UpdateSource(ctx, src))

	got, err = store.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, models.ParsingStatusCompleted, got.Status)
}

func TestSQLiteStore_NodesAndRelationships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSource(ctx, &models.Source{ID: "src-1", Kind: models.SourceKindUploaded, Name: "n", LocalPath: "/x", Status: models.ParsingStatusProcessing}))
	require.NoError(t, store.CreateRepository(ctx, &models.Repository{ID: "repo-1", SourceID: "src-1", Name: "n"}))

	nodes := []models.Node{
		{ID: "n1", RepositoryID: "repo-1", Kind: models.NodeKindFile, Name: "a.py", QualifiedName: "a.py", FilePath: "a.py"},
		{ID: "n2", RepositoryID: "repo-1", Kind: models.NodeKindFunction, Name: "run", QualifiedName: "a.py::run", FilePath: "a.py", Span: models.Span{LineStart: 1, LineEnd: 3}},
	}
	require.NoError(t, store.CreateNodes(ctx, nodes))

	rels := []models.Relationship{
		{ID: "r1", RepositoryID: "repo-1", SourceNodeID: "n1", TargetNodeID: "n2", Kind: models.RelationContains, Confidence: models.ConfidenceContainment},
	}
	require.NoError(t, store.CreateRelationships(ctx, rels))

	fetched, err := store.GetNodes(ctx, "repo-1", NodeFilter{})
	require.NoError(t, err)
	assert.Len(t, fetched, 2)

	fetchedRels, err := store.GetRelationshipsForNodes(ctx, "repo-1", []string{"n1", "n2"}, RelationshipFilter{})
	require.NoError(t, err)
	require.Len(t, fetchedRels, 1)
	assert.Equal(t, models.RelationContains, fetchedRels[0].Kind)
}

func TestGraphSink_BatchesWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSource(ctx, &models.Source{ID: "src-1", Kind: models.SourceKindUploaded, Name: "n", LocalPath: "/x", Status: models.ParsingStatusProcessing}))
	require.NoError(t, store.CreateRepository(ctx, &models.Repository{ID: "repo-1", SourceID: "src-1", Name: "n"}))

	sink := NewGraphSink(store, 1)
	nodes := []models.Node{
		{ID: "a", RepositoryID: "repo-1", Kind: models.NodeKindFile, Name: "a.py", QualifiedName: "a.py", FilePath: "a.py"},
		{ID: "b", RepositoryID: "repo-1", Kind: models.NodeKindFile, Name: "b.py", QualifiedName: "b.py", FilePath: "b.py"},
	}
	require.NoError(t, sink.CreateNodes(ctx, nodes))

	fetched, err := store.GetNodes(ctx, "repo-1", NodeFilter{})
	require.NoError(t, err)
	assert.Len(t, fetched, 2)
}
