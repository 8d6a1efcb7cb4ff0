package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/langregistry"
	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/parser"
	"github.com/rohankatakam/codegraph/internal/storage"
)

type fakeStore struct {
	sources      []models.Source
	repositories []models.Repository
}

func (f *fakeStore) CreateSource(_ context.Context, src *models.Source) error {
	f.sources = append(f.sources, *src)
	return nil
}
func (f *fakeStore) UpdateSource(_ context.Context, src *models.Source) error {
	f.sources = append(f.sources, *src)
	return nil
}
func (f *fakeStore) GetSource(_ context.Context, id string) (*models.Source, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) CreateRepository(_ context.Context, repo *models.Repository) error {
	f.repositories = append(f.repositories, *repo)
	return nil
}
func (f *fakeStore) UpdateRepository(_ context.Context, repo *models.Repository) error {
	f.repositories = append(f.repositories, *repo)
	return nil
}
func (f *fakeStore) GetRepository(_ context.Context, id string) (*models.Repository, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) CreateNodes(_ context.Context, nodes []models.Node) error         { return nil }
func (f *fakeStore) CreateRelationships(_ context.Context, rels []models.Relationship) error {
	return nil
}
func (f *fakeStore) GetNodes(_ context.Context, _ string, _ storage.NodeFilter) ([]models.Node, error) {
	return nil, nil
}
func (f *fakeStore) GetRelationshipsForNodes(_ context.Context, _ string, _ []string, _ storage.RelationshipFilter) ([]models.Relationship, error) {
	return nil, nil
}
func (f *fakeStore) CreateAnalysis(_ context.Context, a *models.Analysis) error { return nil }
func (f *fakeStore) GetAnalysis(_ context.Context, _ string, _ models.AnalysisKind) (*models.Analysis, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) lastSource() *models.Source {
	if len(f.sources) == 0 {
		return nil
	}
	return &f.sources[len(f.sources)-1]
}

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

func newTestOrchestrator(store storage.Store, sink *fakeSink) *Orchestrator {
	return &Orchestrator{
		Store:           store,
		Sink:            sink,
		Langs:           langregistry.NewRegistry(),
		Parsers:         parser.NewRegistry(parser.ModePattern, 0, nil),
		Workers:         4,
		StreamBatchSize: 25,
		BulkBatchSize:   50,
		tasks:           newRegistry(),
	}
}

// TestNewSourceFromRequest_SubstitutesRepositoryURLIntoLocalPath covers
// SPEC_FULL §3's two-layer identity invariant: a request with only
// RepositoryURL is valid to accept, but the stored Source row must get
// something in LocalPath.
func TestNewSourceFromRequest_SubstitutesRepositoryURLIntoLocalPath(t *testing.T) {
	req := ParseRequest{Name: "remote-only", RepositoryURL: "https://github.com/org/repo"}
	src := newSourceFromRequest(req)
	assert.Equal(t, req.RepositoryURL, src.LocalPath)
}

// TestNewSourceFromRequest_KeepsExplicitLocalPath ensures the
// substitution only fires when nothing else already satisfies the
// Source's own identity invariant.
func TestNewSourceFromRequest_KeepsExplicitLocalPath(t *testing.T) {
	req := ParseRequest{Name: "local", LocalPath: "/repo/checkout", RepositoryURL: "https://github.com/org/repo"}
	src := newSourceFromRequest(req)
	assert.Equal(t, "/repo/checkout", src.LocalPath)
}

// TestNewSourceFromRequest_ArchonProjectIDSkipsSubstitution ensures an
// external identifier alone is enough; LocalPath stays empty rather
// than being backfilled from a URL that also happens to be set.
func TestNewSourceFromRequest_ArchonProjectIDSkipsSubstitution(t *testing.T) {
	req := ParseRequest{Name: "tracked", ArchonProjectID: "proj-1", RepositoryURL: "https://github.com/org/repo"}
	src := newSourceFromRequest(req)
	assert.Empty(t, src.LocalPath)
	require.NotNil(t, src.ExternalProjectID)
	assert.Equal(t, "proj-1", *src.ExternalProjectID)
}

// TestRun_StreamsFilesIntoSink runs the full Clone(skip)/Filter/Parse/
// persist loop against a real temp directory, a real Filter/Language
// Registry/pattern Parser, and fakes only for the storage boundary.
func TestRun_StreamsFilesIntoSink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.py"), []byte("def helper():\n    pass\n"), 0o644))

	store := &fakeStore{}
	sink := &fakeSink{}
	o := newTestOrchestrator(store, sink)

	disabled := false
	req := ParseRequest{Name: "local-repo", LocalPath: dir, EnableCrossFileRefs: &disabled}
	src := &models.Source{ID: "src-1", Name: req.Name, LocalPath: dir}

	o.run(context.Background(), src, req)

	assert.Equal(t, models.ParsingStatusCompleted, src.Status)
	assert.Equal(t, 2, src.FilesParsed)
	assert.NotEmpty(t, sink.nodes)

	var sawMain, sawHelper bool
	for _, n := range sink.nodes {
		if n.Name == "main" {
			sawMain = true
		}
		if n.Name == "helper" {
			sawHelper = true
		}
	}
	assert.True(t, sawMain, "expected a node for main()")
	assert.True(t, sawHelper, "expected a node for helper()")
}

// TestRun_CancelledMidParse covers the cooperative-cancellation path:
// cancelling before streaming starts should mark the Source failed with
// the cancellation error instead of completed.
func TestRun_CancelledMidParse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	store := &fakeStore{}
	sink := &fakeSink{}
	o := newTestOrchestrator(store, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := ParseRequest{Name: "local-repo", LocalPath: dir}
	src := &models.Source{ID: "src-2", Name: req.Name, LocalPath: dir}

	o.run(ctx, src, req)
	assert.Equal(t, models.ParsingStatusFailed, src.Status)
	assert.Equal(t, errCancelled.Error(), src.Error)
}
