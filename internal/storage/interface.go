package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/codegraph/internal/models"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// NodeFilter narrows GetNodes to a subset of a repository's Nodes.
type NodeFilter struct {
	Kinds    []models.NodeKind
	Language string
	Limit    int
}

// RelationshipFilter narrows GetRelationships.
type RelationshipFilter struct {
	NodeIDs []string
	Kinds   []models.RelationKind
}

// Store is the persistence contract shared by the Graph Builder sink,
// the Ingestion Orchestrator, the Analyzer, and the Query Engine. It
// matches SPEC_FULL §3's table shapes: sources, repositories, nodes,
// relationships, analysis.
type Store interface {
	// Source lifecycle.
	CreateSource(ctx context.Context, src *models.Source) error
	UpdateSource(ctx context.Context, src *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)

	// Repository.
	CreateRepository(ctx context.Context, repo *models.Repository) error
	UpdateRepository(ctx context.Context, repo *models.Repository) error
	GetRepository(ctx context.Context, id string) (*models.Repository, error)

	// Nodes and Relationships, batch-inserted by the Graph Builder sink
	// and read back by the Query Engine and Analyzer.
	CreateNodes(ctx context.Context, nodes []models.Node) error
	CreateRelationships(ctx context.Context, rels []models.Relationship) error
	GetNodes(ctx context.Context, repoID string, filter NodeFilter) ([]models.Node, error)
	GetRelationshipsForNodes(ctx context.Context, repoID string, nodeIDs []string, filter RelationshipFilter) ([]models.Relationship, error)

	// Analysis cache.
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, repoID string, kind models.AnalysisKind) (*models.Analysis, error)

	Close() error
}
