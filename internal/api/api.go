// Package api defines the Go struct shapes for SPEC_FULL §6's external
// interfaces: the ingestion RPC request/response pairs, the Query
// Engine's request/result envelopes, and the Analyzer's request shape.
// Nothing here does I/O; cmd/kgctl and any future transport layer
// (gRPC, HTTP) bind these to the real internal/orchestrator,
// internal/query and internal/analyzer calls.
package api

import (
	"time"

	"github.com/rohankatakam/codegraph/internal/models"
)

// StartParseRequest is validated with go-playground/validator tags the
// way the Orchestrator's internal ParseRequest is (internal/orchestrator
// re-validates independently; this is the wire shape callers send).
type StartParseRequest struct {
	Name                string   `json:"name" validate:"required"`
	RepositoryURL       string   `json:"repository_url,omitempty"`
	LocalPath           string   `json:"local_path,omitempty"`
	BranchName          string   `json:"branch_name,omitempty"`
	ArchonSourceID      string   `json:"archon_source_id,omitempty"`
	ArchonProjectID     string   `json:"archon_project_id,omitempty"`
	Languages           []string `json:"languages,omitempty"`
	MaxFileSizeKB       int      `json:"max_file_size_kb,omitempty"`
	ParseTimeoutSeconds int      `json:"parse_timeout_seconds,omitempty"`
	EnableCrossFileRefs *bool    `json:"enable_cross_file_refs,omitempty"`
}

// StartParseResponse is returned immediately; the job itself runs
// asynchronously and reports via the progress channel.
type StartParseResponse struct {
	ParsingID         string        `json:"parsing_id"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// CancelParseRequest identifies the job to cancel.
type CancelParseRequest struct {
	ParsingID string `json:"parsing_id" validate:"required"`
}

// CancelParseResponse reports whether a task was active to cancel.
type CancelParseResponse struct {
	WasActive bool `json:"was_active"`
}

// GraphQuery is the §4.G query_graph request shape.
type GraphQuery struct {
	RepositoryID       string              `json:"repository_id" validate:"required"`
	StartNodeID        string              `json:"start_node_id,omitempty"`
	EndNodeID          string              `json:"end_node_id,omitempty"`
	AllowedRelations   []models.RelationKind `json:"allowed_relations,omitempty"`
	MaxDepth           int                 `json:"max_depth,omitempty"`
	AllowedNodeKinds   []models.NodeKind   `json:"allowed_node_kinds,omitempty"`
	Language           string              `json:"language,omitempty"`
	IncludeProperties  bool                `json:"include_properties,omitempty"`
}

// QueryResult is query_graph's return envelope.
type QueryResult struct {
	Nodes                []models.Node         `json:"nodes"`
	Relationships        []models.Relationship `json:"relationships"`
	TotalNodes           int                    `json:"total_nodes"`
	TotalRelationships   int                    `json:"total_relationships"`
	QueryParameters      GraphQuery             `json:"query_parameters"`
}

// GraphStats is get_graph_statistics' return shape.
type GraphStats struct {
	RepositoryID        string             `json:"repository_id"`
	NodeCountByKind     map[string]int     `json:"node_count_by_kind"`
	EdgeCountByKind     map[string]int     `json:"edge_count_by_kind"`
	NodeCountByLanguage map[string]int     `json:"node_count_by_language"`
	ComplexityAvg       float64            `json:"complexity_avg"`
	ComplexityMin       int                `json:"complexity_min"`
	ComplexityMax       int                `json:"complexity_max"`
	ComplexityMedian    float64            `json:"complexity_median"`
}

// AnalyzeRequest drives the Analyzer (§4.E).
type AnalyzeRequest struct {
	RepositoryID string               `json:"repository_id" validate:"required"`
	Kind         models.AnalysisKind  `json:"kind" validate:"required"`
}
