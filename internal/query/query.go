// Package query implements the Query Engine (§4.G): filtered node and
// relationship retrieval over a persisted repository graph, with the
// batched fan-out the store backends require to bound argument lists.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rohankatakam/codegraph/internal/api"
	"github.com/rohankatakam/codegraph/internal/models"
	"github.com/rohankatakam/codegraph/internal/storage"
)

// nodeBatchSize bounds how many node ids are sent in one relationship
// fetch, matching §4.G step 2's "50 node-ids per request" rule.
const nodeBatchSize = 50

// nodeCap is the visualization budget named in §4.G step 1.
const nodeCap = 1000

// Engine answers read queries against a Store. It holds no graph state
// of its own; every call re-reads from the store.
type Engine struct {
	Store storage.Store
}

// New returns a query Engine backed by store.
func New(store storage.Store) *Engine {
	return &Engine{Store: store}
}

// QueryGraph runs §4.G's query_graph procedure: capped node selection,
// batched relationship fan-out, dedupe, and an endpoint-membership
// filter. Path filtering when StartNodeID/EndNodeID is set is
// deliberately a no-op pass-through — SPEC_FULL §9 leaves the intended
// bounded-BFS/shortest-path semantics as an open question, and a wrong
// guess here would silently drop valid edges.
func (e *Engine) QueryGraph(ctx context.Context, q api.GraphQuery) (*api.QueryResult, error) {
	if q.RepositoryID == "" {
		return nil, fmt.Errorf("query: repository_id is required")
	}

	nodes, err := e.Store.GetNodes(ctx, q.RepositoryID, storage.NodeFilter{
		Kinds:    q.AllowedNodeKinds,
		Language: q.Language,
		Limit:    nodeCap,
	})
	if err != nil {
		return nil, fmt.Errorf("query: get nodes: %w", err)
	}

	nodeIDs := make([]string, len(nodes))
	inSet := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		nodeIDs[i] = n.ID
		inSet[n.ID] = true
	}

	rels, err := e.fetchRelationshipsBatched(ctx, q.RepositoryID, nodeIDs, storage.RelationshipFilter{Kinds: q.AllowedRelations})
	if err != nil {
		return nil, fmt.Errorf("query: get relationships: %w", err)
	}

	filtered := rels[:0]
	for _, r := range rels {
		if inSet[r.SourceNodeID] && inSet[r.TargetNodeID] {
			filtered = append(filtered, r)
		}
	}

	if !q.IncludeProperties {
		for i := range nodes {
			nodes[i].Properties = nil
		}
	}

	return &api.QueryResult{
		Nodes:              nodes,
		Relationships:      filtered,
		TotalNodes:         len(nodes),
		TotalRelationships: len(filtered),
		QueryParameters:    q,
	}, nil
}

// fetchRelationshipsBatched runs the §4.G step 2 batched fetch: chunk
// nodeIDs into groups of nodeBatchSize, fetch each batch's
// relationships independently, then dedupe the combined result by id.
func (e *Engine) fetchRelationshipsBatched(ctx context.Context, repoID string, nodeIDs []string, filter storage.RelationshipFilter) ([]models.Relationship, error) {
	seen := make(map[string]bool)
	var out []models.Relationship
	for start := 0; start < len(nodeIDs); start += nodeBatchSize {
		end := start + nodeBatchSize
		if end > len(nodeIDs) {
			end = len(nodeIDs)
		}
		batchFilter := filter
		batchFilter.NodeIDs = nodeIDs[start:end]
		batch, err := e.Store.GetRelationshipsForNodes(ctx, repoID, nodeIDs[start:end], batchFilter)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// Snapshot fetches every node and relationship in a repository, with
// the same batched relationship fan-out query_graph uses but without
// the node cap — the uncapped read path get_graph_statistics and the
// Analyzer (§4.E) both need.
func (e *Engine) Snapshot(ctx context.Context, repoID string) ([]models.Node, []models.Relationship, error) {
	nodes, err := e.Store.GetNodes(ctx, repoID, storage.NodeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: get nodes: %w", err)
	}
	nodeIDs := make([]string, len(nodes))
	for i, n := range nodes {
		nodeIDs[i] = n.ID
	}
	rels, err := e.fetchRelationshipsBatched(ctx, repoID, nodeIDs, storage.RelationshipFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: get relationships: %w", err)
	}
	return nodes, rels, nil
}

// GetGraphStatistics runs the same uncapped, unfiltered fetch and
// aggregates counts by node kind, edge kind, language, plus complexity
// stats (§4.G's get_graph_statistics).
func (e *Engine) GetGraphStatistics(ctx context.Context, repoID string) (*api.GraphStats, error) {
	nodes, rels, err := e.Snapshot(ctx, repoID)
	if err != nil {
		return nil, err
	}

	stats := &api.GraphStats{
		RepositoryID:        repoID,
		NodeCountByKind:     map[string]int{},
		EdgeCountByKind:     map[string]int{},
		NodeCountByLanguage: map[string]int{},
	}

	var complexities []int
	for _, n := range nodes {
		stats.NodeCountByKind[string(n.Kind)]++
		if n.Language != "" {
			stats.NodeCountByLanguage[n.Language]++
		}
		if n.Complexity != nil {
			complexities = append(complexities, *n.Complexity)
		}
	}
	for _, r := range rels {
		stats.EdgeCountByKind[string(r.Kind)]++
	}

	if len(complexities) > 0 {
		sort.Ints(complexities)
		sum := 0
		for _, c := range complexities {
			sum += c
		}
		stats.ComplexityAvg = float64(sum) / float64(len(complexities))
		stats.ComplexityMin = complexities[0]
		stats.ComplexityMax = complexities[len(complexities)-1]
		stats.ComplexityMedian = median(complexities)
	}
	return stats, nil
}

func median(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

// SearchNodes finds nodes in repoID whose name, qualified name, or
// docstring contains substr, case-insensitively, capped at the same
// nodeCap query_graph uses. Supplements §4.G with a simple lookup path
// the spec's query_graph doesn't cover: finding a node by name (or by
// what its docstring says) before querying its neighborhood by id.
func (e *Engine) SearchNodes(ctx context.Context, repoID, substr string, limit int) ([]models.Node, error) {
	nodes, err := e.Store.GetNodes(ctx, repoID, storage.NodeFilter{})
	if err != nil {
		return nil, fmt.Errorf("search: get nodes: %w", err)
	}
	if limit <= 0 || limit > nodeCap {
		limit = nodeCap
	}
	var out []models.Node
	for _, n := range nodes {
		if containsFold(n.Name, substr) || containsFold(n.QualifiedName, substr) || containsFold(n.Docstring, substr) {
			out = append(out, n)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	sl, subl := []rune(s), []rune(substr)
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j, r := range subl {
			if toLower(sl[i+j]) != toLower(r) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// SubgraphExport is the JSON shape ExportSubgraph produces: a
// self-contained document an offline visualization tool can load
// without talking back to the store.
type SubgraphExport struct {
	RepositoryID  string                `json:"repository_id"`
	Nodes         []models.Node         `json:"nodes"`
	Relationships []models.Relationship `json:"relationships"`
	Metadata      map[string]any        `json:"metadata"`
}

// ExportSubgraph runs q through QueryGraph and serializes the result to
// a SubgraphExport JSON document. This is export-format plumbing only,
// not a new analysis — the graph itself is whatever query_graph would
// have returned.
func (e *Engine) ExportSubgraph(ctx context.Context, q api.GraphQuery) ([]byte, error) {
	result, err := e.QueryGraph(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export subgraph: %w", err)
	}

	export := SubgraphExport{
		RepositoryID:  q.RepositoryID,
		Nodes:         result.Nodes,
		Relationships: result.Relationships,
		Metadata: map[string]any{
			"total_nodes":         result.TotalNodes,
			"total_relationships": result.TotalRelationships,
		},
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export subgraph: marshal: %w", err)
	}
	return data, nil
}
